package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	easydk "github.com/cambricon/easydk-go"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Enumerate MLU devices visible to this process",
	RunE: func(cmd *cobra.Command, args []string) error {
		n := easydk.EnumerateDevices()
		fmt.Printf("%d device(s) visible\n", n)
		for id := 0; id < n; id++ {
			fmt.Printf("  [%d] %s\n", id, easydk.GetCoreVersion(id))
		}
		return nil
	},
}
