package main

import (
	"context"
	"image"
	"image/color"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/bloco-robotics/bloco"
	"github.com/bloco-robotics/bloco/pkg/eyes"
)

// frameDisplay collects the animator's pixel bands into an RGBA frame
// and refreshes the canvas once the bottom band lands.
type frameDisplay struct {
	mu    sync.Mutex
	frame *image.RGBA
	img   *canvas.Image
}

var _ bloco.Display = (*frameDisplay)(nil)

func newFrameDisplay() *frameDisplay {
	d := &frameDisplay{
		frame: image.NewRGBA(image.Rect(0, 0, eyes.Width, eyes.Height)),
	}
	d.img = canvas.NewImageFromImage(d.frame)
	d.img.FillMode = canvas.ImageFillContain
	d.img.SetMinSize(fyne.NewSize(eyes.Width, eyes.Height))
	return d
}

func (d *frameDisplay) Flush(buf []uint16, yStart, yEnd int) {
	d.mu.Lock()
	for y := yStart; y < yEnd; y++ {
		for x := 0; x < eyes.Width; x++ {
			d.frame.SetRGBA(x, y, rgb565ToRGBA(buf[(y-yStart)*eyes.Width+x]))
		}
	}
	d.mu.Unlock()

	if yEnd == eyes.Height {
		fyne.Do(func() {
			d.img.Refresh()
		})
	}
}

func rgb565ToRGBA(v uint16) color.RGBA {
	return color.RGBA{
		R: uint8(v>>11) << 3,
		G: uint8(v>>5&0x3F) << 2,
		B: uint8(v&0x1F) << 3,
		A: 0xFF,
	}
}

func main() {
	a := app.New()
	w := a.NewWindow("Bloco Eyes")

	display := newFrameDisplay()
	animator := eyes.NewAnimator(display)

	ctx, cancel := context.WithCancel(context.Background())
	go animator.Run(ctx)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		for sig := range shutdown {
			log.Println("Shutdown signal received:", sig)
			cancel()
			a.Quit()
		}
	}()

	var exprButtons []fyne.CanvasObject
	for e := eyes.Normal; e <= eyes.Dizzy; e++ {
		expr := e
		exprButtons = append(exprButtons, widget.NewButton(expr.String(), func() {
			animator.SetExpression(expr)
		}))
	}

	lookSelect := widget.NewSelect(
		[]string{"center", "left", "right", "up", "down"},
		func(s string) {
			for l := eyes.LookCenter; l <= eyes.LookDown; l++ {
				if l.String() == s {
					animator.SetLook(l)
					return
				}
			}
		},
	)
	lookSelect.SetSelected("center")

	blinkButton := widget.NewButton("blink", func() {
		animator.RequestBlink()
	})

	w.SetContent(container.NewVBox(
		display.img,
		container.NewGridWithColumns(5, exprButtons...),
		container.NewHBox(blinkButton, lookSelect),
	))
	w.SetOnClosed(cancel)
	w.ShowAndRun()
}
