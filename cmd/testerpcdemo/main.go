// Command testerpcdemo wires a session config, a WebSocket transport,
// and an RPC client together and drives one connect/login/cleanup
// round trip against a relay server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"testerpc/client"
	"testerpc/logging"
	"testerpc/probeclock"
	"testerpc/session"
	"testerpc/wstransport"
)

func runSession(cfg session.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logging.New(os.Stdout, "[testerpcdemo]", true)
	transport := wstransport.New(cfg.Server, nil)
	c := client.New(cfg, transport, probeclock.WallClock, log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	log.Infof("connecting to %s as instance %s", cfg.Server, c.InstanceID())
	if err := c.Connect(ctx); err != nil {
		return fmt.Errorf("connect failed: %w", err)
	}

	c.SetNonresponsivenessListener(func(params json.RawMessage) {
		log.Warnf("app reported nonresponsive: %s", params)
	})

	if err := c.WaitUntilReady(); err != nil {
		log.Errorf("wait for ready failed: %v", err)
	}

	if crash := c.GetPendingCrashAndReset(); crash != nil {
		log.Errorf("app crashed during session: %v", crash)
	}

	if err := c.Cleanup(true); err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}
	log.Info("session finished")
	return nil
}

func main() {
	cfg := session.Config{
		Server:               "ws://localhost:8099/ws",
		SessionID:            "demo-session",
		DebugSynchronization: 10 * time.Second,
	}
	if err := runSession(cfg); err != nil {
		fmt.Fprintln(os.Stderr, "testerpcdemo:", err)
		os.Exit(1)
	}
}
