package cmd

import (
	"fmt"
	"time"

	"github.com/named-data/ndnd/consumer"
	"github.com/named-data/ndnd/fw/face"
	enc "github.com/named-data/ndnd/std/encoding"
	"github.com/named-data/ndnd/std/object/congestion"
	"github.com/spf13/cobra"
)

var pingServer string
var pingCount uint64
var pingMinRto time.Duration
var pingMaxMultiplier uint16
var pingBeta float64
var pingConservative bool

// CmdPing drives a BIC-congestion-controlled Interest stream against a
// running forwarder, for exercising and measuring the PCON strategy end to
// end without a full simulation harness.
var CmdPing = &cobra.Command{
	Use:     "ping PREFIX",
	Short:   "Send a window-paced Interest stream under PREFIX",
	GroupID: "run",
	Args:    cobra.ExactArgs(1),
	Run:     runPing,
}

func init() {
	CmdPing.Flags().StringVar(&pingServer, "server", "ws://127.0.0.1:6363/", "Forwarder WebSocket address")
	CmdPing.Flags().Uint64Var(&pingCount, "count", 0, "Number of Interests to send (0 = unbounded)")
	CmdPing.Flags().DurationVar(&pingMinRto, "min-rto", 200*time.Millisecond, "Minimum retransmission timeout")
	CmdPing.Flags().Uint16Var(&pingMaxMultiplier, "max-multiplier", 16, "Maximum RTO backoff multiplier")
	CmdPing.Flags().Float64Var(&pingBeta, "beta", 0.5, "BIC multiplicative decrease factor")
	CmdPing.Flags().BoolVar(&pingConservative, "conservative", true, "Limit decreases to at most one per round-trip")
}

func runPing(cmd *cobra.Command, args []string) {
	prefix, err := enc.NameFromStr(args[0])
	if err != nil {
		fmt.Println("invalid prefix:", err)
		return
	}

	f, err := face.DialWebSocket(pingServer)
	if err != nil {
		fmt.Println("unable to connect:", err)
		return
	}
	defer f.Close()

	window := congestion.NewBICWindow(1, pingBeta, pingConservative, true, false)
	c := consumer.NewConsumer(f, prefix, window, pingMinRto, pingMaxMultiplier, pingCount)
	c.OnFinish = func() {
		fmt.Println("done")
	}
	c.Run()
}
