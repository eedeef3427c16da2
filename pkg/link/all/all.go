// Package all registers every link implementation. Import it for side
// effects from binaries that select a link by kind at runtime.
package all

import (
	_ "github.com/bloco-robotics/bloco/pkg/link/ble"
	_ "github.com/bloco-robotics/bloco/pkg/link/memory"
)
