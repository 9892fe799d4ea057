package cmd

import (
	"github.com/named-data/ndnd/fw/cmd"
	"github.com/named-data/ndnd/std/utils"
	"github.com/spf13/cobra"
)

// CmdNDNd is the root command aggregating every subcommand this module
// provides: the forwarder daemon and the congestion-window ping client
// used to drive and measure it.
var CmdNDNd = &cobra.Command{
	Use:     "ndnd",
	Short:   "PCON congestion-controlled NDN forwarder and tools",
	Version: utils.NDNdVersion,
}

func init() {
	CmdNDNd.AddGroup(&cobra.Group{ID: "run", Title: "Run:"})
	CmdNDNd.AddCommand(cmd.CmdYaNFD)
	CmdNDNd.AddCommand(CmdPing)
	CmdNDNd.AddCommand(CmdTrace)
}
