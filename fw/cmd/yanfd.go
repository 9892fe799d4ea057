/* YaNFD - Yet another NDN Forwarding Daemon
 *
 * Copyright (C) 2020-2021 Eric Newberry.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package cmd

import (
	"context"
	"fmt"

	"github.com/named-data/ndnd/fw/core"
	"github.com/named-data/ndnd/fw/face"
	"github.com/named-data/ndnd/fw/fw"
	golog "github.com/named-data/ndnd/std/log"
)

// YaNFD is the running forwarder process: one fw.Thread driving the PCON
// strategy over whatever faces the configuration brings up.
type YaNFD struct {
	config *core.Config
	thread *fw.Thread
}

// NewYaNFD constructs a YaNFD from a decoded configuration, without
// starting anything yet.
func NewYaNFD(config *core.Config) *YaNFD {
	if level, err := golog.ParseLevel(config.Core.Log); err == nil {
		core.Log.SetLevel(level)
	}

	thread := fw.NewThread(config)
	thread.SetDefaultStrategy("pcon-strategy")

	return &YaNFD{
		config: config,
		thread: thread,
	}
}

// String identifies the daemon in log output.
func (y *YaNFD) String() string {
	return fmt.Sprintf("yanfd (%s)", y.config.Core.RouterName)
}

// Thread returns the forwarding thread this daemon drives, so a management
// module or test harness can attach faces or inspect strategy state.
func (y *YaNFD) Thread() *fw.Thread { return y.thread }

// Start brings the forwarding thread up and begins listening for WebSocket
// face connections on the configured address.
func (y *YaNFD) Start() {
	ctx := context.Background()
	y.thread.Start(ctx)

	go func() {
		if err := face.ListenAndServeWebSocket(y.config.Face.Listen, func(f *face.WebSocketFace) {
			id := y.thread.AttachFace(f)
			core.Log.Info(y, "Accepted face", "faceid", id)
		}); err != nil {
			core.Log.Error(y, "Face listener stopped", "err", err)
		}
	}()

	core.Log.Info(y, "Started", "router", y.config.Core.RouterName, "listen", y.config.Face.Listen)
}

// Stop shuts the forwarding thread down and flushes its trace sink.
func (y *YaNFD) Stop() {
	y.thread.Stop()
	if err := y.thread.Trace.Close(); err != nil {
		core.Log.Error(y, "Error closing trace sink", "err", err)
	}
	core.Log.Info(y, "Stopped")
}
