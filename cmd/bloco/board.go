package main

import (
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/bloco-robotics/bloco"
	"github.com/bloco-robotics/bloco/pkg/board"
	"github.com/bloco-robotics/bloco/pkg/eeprom"
	"github.com/bloco-robotics/bloco/pkg/pairing"
	"github.com/bloco-robotics/bloco/pkg/store"

	_ "github.com/bloco-robotics/bloco/pkg/link/all"
)

var (
	boardPair bool
	boardSend bool
)

var boardCmd = &cobra.Command{
	Use:   "board [token-image...]",
	Short: "Run a reader board",
	Long: `Runs a reader board over the configured link. Each positional
argument is a 32-byte token image file placed into a slot in order;
remaining slots stay empty. With --pair the board enters pairing mode
on boot, and with --send it beams the program once a robot is paired.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(bloco.RoleBoard)
		if err != nil {
			return err
		}

		link, err := bloco.NewLink(cfg.LinkKind, cfg.DeviceName)
		if err != nil {
			return err
		}
		defer link.Close()

		slots := make([]eeprom.Device, cfg.Slots)
		for i := range slots {
			mem := eeprom.NewMemory()
			if i < len(args) {
				loaded, err := loadTokenSlot(args[i])
				if err != nil {
					return err
				}
				mem = loaded
			} else {
				mem.SetPresent(false)
			}
			slots[i] = mem
		}
		if len(args) > cfg.Slots {
			log.Printf("board: %d token images given but only %d slots, extras ignored", len(args), cfg.Slots)
		}

		st := store.NewFileStore(cfg.StatePath)
		if err := st.SaveRole(cfg.Role); err != nil {
			return err
		}

		dev := board.New(board.Config{
			Link:      link,
			Store:     st,
			Indicator: logIndicator{},
			Slots:     slots,
		})

		ctx, cancel := signalContext()
		defer cancel()

		if boardPair {
			dev.RequestPairing()
		}
		if boardSend {
			go func() {
				ticker := time.NewTicker(500 * time.Millisecond)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						if dev.Pairing().State() == pairing.StatePaired {
							dev.RequestSend()
							return
						}
					}
				}
			}()
		}

		log.Printf("board %q up on %s link as %s", cfg.DeviceName, cfg.LinkKind, link.Addr())
		dev.Run(ctx)
		return nil
	},
}

func init() {
	boardCmd.Flags().BoolVar(&boardPair, "pair", false, "enter pairing mode on boot")
	boardCmd.Flags().BoolVar(&boardSend, "send", false, "send the program once a robot is paired")
	rootCmd.AddCommand(boardCmd)
}
