// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"github.com/tomtom215/ctgp-popularity/internal/config"
)

// Layer selects the child supervisor a service runs under.
type Layer int

const (
	// LayerData holds storage maintenance (detail cache GC).
	LayerData Layer = iota
	// LayerMessaging holds the refresh manager, event forwarder and hub.
	LayerMessaging
	// LayerAPI holds the HTTP server.
	LayerAPI

	layerCount
)

var layerNames = [layerCount]string{"data-layer", "messaging-layer", "api-layer"}

func (l Layer) String() string {
	if l < 0 || l >= layerCount {
		return fmt.Sprintf("layer(%d)", int(l))
	}
	return layerNames[l]
}

// ErrUnknownLayer is returned for a Layer outside the defined constants.
var ErrUnknownLayer = errors.New("unknown supervisor layer")

// SupervisorTree is the process supervision tree: a root named after the
// service with one child supervisor per Layer. A crashing refresh manager
// restarts inside the messaging layer while the API keeps serving the last
// published snapshot.
type SupervisorTree struct {
	root   *suture.Supervisor
	layers [layerCount]*suture.Supervisor
	spec   suture.Spec
}

// specFor maps the configured restart policy onto a suture spec. Zero values
// fall through to suture's own defaults.
func specFor(cfg config.SupervisorConfig) suture.Spec {
	return suture.Spec{
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.ShutdownTimeout,
	}
}

// NewSupervisorTree builds the tree. Supervisor events are logged through
// logger (slog.Default when nil).
func NewSupervisorTree(logger *slog.Logger, cfg config.SupervisorConfig) *SupervisorTree {
	if logger == nil {
		logger = slog.Default()
	}

	spec := specFor(cfg)
	rootSpec := spec
	rootSpec.EventHook = (&sutureslog.Handler{Logger: logger}).MustHook()

	t := &SupervisorTree{
		root: suture.New("ctgp-popularity", rootSpec),
		spec: spec,
	}
	// Layers inherit the root's event hook once added.
	for l := LayerData; l < layerCount; l++ {
		t.layers[l] = suture.New(l.String(), spec)
		t.root.Add(t.layers[l])
	}
	return t
}

// Add runs svc under the given layer.
func (t *SupervisorTree) Add(layer Layer, svc suture.Service) (suture.ServiceToken, error) {
	sup, err := t.layer(layer)
	if err != nil {
		return suture.ServiceToken{}, err
	}
	return sup.Add(svc), nil
}

// Remove stops and removes a service previously added to layer.
func (t *SupervisorTree) Remove(layer Layer, token suture.ServiceToken) error {
	sup, err := t.layer(layer)
	if err != nil {
		return err
	}
	return sup.Remove(token)
}

func (t *SupervisorTree) layer(l Layer) (*suture.Supervisor, error) {
	if l < 0 || l >= layerCount {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLayer, l)
	}
	return t.layers[l], nil
}

// Serve runs the tree until ctx is canceled.
func (t *SupervisorTree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground runs the tree in a goroutine; the channel yields the
// result once the tree stops.
func (t *SupervisorTree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport lists services that outlived the shutdown timeout.
func (t *SupervisorTree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}
