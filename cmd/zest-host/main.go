// Copyright 2026 The zeST Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// zest-host is the daemon that brings up the zeST peripheral emulation
// plane: it acquires the FPGA device window, loads the configuration
// snapshot, brings up the floppy/ACSI/GEMDOS/MIDI/jukebox subsystems
// through zest.Init(), then runs the interrupt demultiplexer, the MIDI
// poll loop and (if enabled) the jukebox rotation timer until a shutdown
// signal arrives.
//
// Its shape follows cmd/periph-info: flag-based CLI switches, a
// mainImpl() error wrapper, and log output sent to stdout with -v and to
// stderr without it.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/zest-project/zest"
	"github.com/zest-project/zest/acsi"
	"github.com/zest-project/zest/config"
	"github.com/zest-project/zest/floppy"
	"github.com/zest-project/zest/gemdos"
	"github.com/zest-project/zest/host/zestwin"
	"github.com/zest-project/zest/jukebox"
	"github.com/zest-project/zest/midi"
)

func printDrivers(label string, failures []zest.DriverFailure) {
	if len(failures) == 0 {
		return
	}
	fmt.Printf("%s:\n", label)
	for _, f := range failures {
		fmt.Printf("  - %s\n", f)
	}
}

func mainImpl() error {
	uio := flag.String("uio", "/dev/uio0", "UIO device node for the FPGA register window")
	configPath := flag.String("config", "", "path to the INI-shaped configuration snapshot")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()
	if flag.NArg() != 0 {
		return errors.New("unexpected argument, try -help")
	}

	logger := log.New(os.Stdout, "", log.Lmicroseconds)
	if !*verbose {
		logger.SetOutput(os.Stderr)
	}

	cfg := config.Default()
	if *configPath != "" {
		c, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = c
	}

	windowDrv := &zestwin.Driver{UIODevice: *uio}
	gemdosDrv := &gemdos.Driver{Config: cfg, Drive: 'C'}
	floppyDrv := &floppy.Driver{Config: cfg, Logger: logger, WindowDriver: windowDrv}
	acsiDrv := &acsi.Driver{Config: cfg, WindowDriver: windowDrv, GEMDOSDriver: gemdosDrv, Logger: logger}
	midiDrv := &midi.Driver{Config: cfg, Logger: logger, WindowDriver: windowDrv}
	jukeboxDrv := &jukebox.Driver{Config: cfg, Logger: logger, Seed: time.Now().UnixNano(), FloppyDriver: floppyDrv}

	for _, d := range []zest.Driver{windowDrv, gemdosDrv, floppyDrv, acsiDrv, midiDrv, jukeboxDrv} {
		if err := zest.Register(d); err != nil {
			return err
		}
	}

	state, err := zest.Init()
	if err != nil {
		return err
	}
	printDrivers("failed", state.Failed)
	printDrivers("skipped", state.Skipped)
	for _, f := range state.Failed {
		if f.D == windowDrv {
			return fmt.Errorf("zest-host: %w", f.Err)
		}
	}

	isTTY := term.IsTerminal(int(os.Stdout.Fd()))
	statusLine(isTTY, "zest-host: %d driver(s) loaded, %d skipped, %d failed",
		len(state.Loaded), len(state.Skipped), len(state.Failed))

	win := windowDrv.Window()
	demux := &zestwin.Demux{
		Window: win,
		Logger: logger,
		Handlers: zestwin.Handlers{
			ACSI: func() {
				if e := acsiDrv.Engine(); e != nil {
					e.OnACSIEvent()
				}
			},
		},
	}
	if stream := floppyDrv.Stream(); stream != nil {
		demux.Handlers.Floppy = stream.OnFloppyEvent
	}
	if bridge := midiDrv.Bridge(); bridge != nil {
		demux.Handlers.MIDI = func() { _ = bridge.Drain() }
	}

	shutdown := make(chan struct{})
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		select {
		case <-sig:
		case <-ctx.Done():
		}
		close(shutdown)
		return nil
	})
	g.Go(func() error { return demux.Run(shutdown) })
	if bridge := midiDrv.Bridge(); bridge != nil {
		g.Go(func() error { return bridge.Run(shutdown) })
	}
	if rot := jukeboxDrv.Rotator(); rot != nil {
		g.Go(func() error { return rot.Run(shutdown) })
	}

	err = g.Wait()
	cancel()

	// Teardown follows spec §5's join order in spirit (T-GEMDOS's
	// conversations are per-call goroutines with their own 500ms bound, so
	// there is nothing long-lived to join there; T-MIDI and T-IRQ already
	// returned above): flush floppy write-back, close ACSI backing files,
	// close MIDI descriptors, then release the window last.
	if stream := floppyDrv.Stream(); stream != nil {
		if cerr := stream.Close(); err == nil {
			err = cerr
		}
	}
	if cerr := acsiDrv.Close(); err == nil {
		err = cerr
	}
	if bridge := midiDrv.Bridge(); bridge != nil {
		if cerr := bridge.Close(); err == nil {
			err = cerr
		}
	}
	if cerr := win.Release(); err == nil {
		err = cerr
	}
	return err
}

func statusLine(tty bool, format string, args ...interface{}) {
	if tty {
		fmt.Printf("\x1b[32m"+format+"\x1b[0m\n", args...)
		return
	}
	fmt.Printf(format+"\n", args...)
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "zest-host: %s.\n", err)
		os.Exit(1)
	}
}
