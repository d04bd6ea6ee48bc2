package nats

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/storyreel/storyreel/internal/logger"
)

// Embedded is an in-process NATS server with a connection and JetStream
// context bound to it. Nothing listens on the network.
type Embedded struct {
	Server *server.Server
	Conn   *nats.Conn
	JS     jetstream.JetStream

	storeDir string
}

// Start boots an embedded server with JetStream enabled and connects to it.
// Streams created by this package are memory-backed; the store directory is a
// throwaway temp dir that Shutdown removes.
func Start() (*Embedded, error) {
	storeDir, err := os.MkdirTemp("", "storyreel-nats-")
	if err != nil {
		return nil, fmt.Errorf("creating nats store dir: %w", err)
	}

	ns, err := StartEmbeddedNATS(storeDir)
	if err != nil {
		_ = os.RemoveAll(storeDir)
		return nil, err
	}

	nc, err := ConnectInProcess(ns)
	if err != nil {
		ns.Shutdown()
		_ = os.RemoveAll(storeDir)
		return nil, err
	}

	js, err := jetstream.New(nc)
	if err != nil {
		_ = Shutdown(nc, ns)
		_ = os.RemoveAll(storeDir)
		return nil, fmt.Errorf("creating jetstream context: %w", err)
	}

	return &Embedded{Server: ns, Conn: nc, JS: js, storeDir: storeDir}, nil
}

// Close drains the connection, stops the server and removes the store dir.
func (e *Embedded) Close() error {
	err := Shutdown(e.Conn, e.Server)
	if e.storeDir != "" {
		_ = os.RemoveAll(e.storeDir)
	}
	return err
}

// StartEmbeddedNATS starts an embedded NATS server with JetStream enabled.
// Returns the server instance or an error if startup fails.
func StartEmbeddedNATS(storeDir string) (*server.Server, error) {
	logger.Debug("Starting embedded NATS server (store dir %s)", storeDir)

	opts := &server.Options{
		JetStream:  true,
		StoreDir:   storeDir,
		DontListen: true,
		NoSigs:     true,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		logger.Error("Failed to create NATS server: %v", err)
		return nil, err
	}

	go ns.Start()

	if !ns.ReadyForConnections(4 * time.Second) {
		logger.Error("NATS server failed to start within 4s timeout")
		return nil, errors.New("nats server failed to start within timeout")
	}

	logger.Debug("NATS server ready for connections")
	return ns, nil
}

// ConnectInProcess creates a connection to the embedded server that bypasses
// the network stack.
func ConnectInProcess(ns *server.Server) (*nats.Conn, error) {
	conn, err := nats.Connect("", nats.InProcessServer(ns))
	if err != nil {
		logger.Error("Failed to connect to NATS in-process: %v", err)
		return nil, err
	}
	return conn, nil
}

// Shutdown drains the connection and then stops the server, bounding both
// steps with a timeout.
func Shutdown(nc *nats.Conn, ns *server.Server) error {
	if nc != nil {
		drainDone := make(chan error, 1)
		go func() {
			drainDone <- nc.Drain()
		}()

		select {
		case err := <-drainDone:
			if err != nil {
				logger.Warn("NATS drain failed, forcing close: %v", err)
				nc.Close()
			}
		case <-time.After(2 * time.Second):
			logger.Warn("NATS drain timed out after 2s, forcing close")
			nc.Close()
		}
	}

	if ns != nil {
		ns.Shutdown()

		shutdownDone := make(chan struct{})
		go func() {
			ns.WaitForShutdown()
			close(shutdownDone)
		}()

		select {
		case <-shutdownDone:
			logger.Debug("NATS server shut down cleanly")
		case <-time.After(5 * time.Second):
			logger.Error("NATS server shutdown timed out after 5s")
			return errors.New("NATS server shutdown timed out")
		}
	}

	return nil
}
