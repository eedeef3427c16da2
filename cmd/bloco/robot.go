package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/bloco-robotics/bloco"
	"github.com/bloco-robotics/bloco/pkg/eyes"
	"github.com/bloco-robotics/bloco/pkg/robot"
	"github.com/bloco-robotics/bloco/pkg/store"

	_ "github.com/bloco-robotics/bloco/pkg/link/all"
)

var robotPair bool

var robotCmd = &cobra.Command{
	Use:   "robot",
	Short: "Run a robot",
	Long: `Runs a robot over the configured link. Motor commands are logged
rather than driven, and the eye animation runs against a null display;
use the fyne viewer under cmd/examples to watch the eyes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(bloco.RoleRobot)
		if err != nil {
			return err
		}

		link, err := bloco.NewLink(cfg.LinkKind, cfg.DeviceName)
		if err != nil {
			return err
		}
		defer link.Close()

		st := store.NewFileStore(cfg.StatePath)
		if err := st.SaveRole(cfg.Role); err != nil {
			return err
		}

		face := eyes.NewAnimator(bloco.NopDisplay{}, eyes.WithStyle(cfg.Style()))

		dev := robot.New(robot.Config{
			Link:      link,
			Store:     st,
			Indicator: logIndicator{},
			Motors:    bloco.LogMotors{},
			Face:      face,
		})

		ctx, cancel := signalContext()
		defer cancel()

		go face.Run(ctx)

		if robotPair {
			dev.RequestPairing()
		}

		log.Printf("robot %q up on %s link as %s", cfg.DeviceName, cfg.LinkKind, link.Addr())
		dev.Run(ctx)
		return nil
	},
}

func init() {
	robotCmd.Flags().BoolVar(&robotPair, "pair", false, "enter pairing mode on boot")
	rootCmd.AddCommand(robotCmd)
}
