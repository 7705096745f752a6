// ABOUTME: Renderer control for the OpenHome and AVTransport dialects
// ABOUTME: Points a renderer at the stream URL and starts or stops playback
package renderer

import (
	"context"
	"fmt"

	"github.com/huin/goupnp"
	"github.com/huin/goupnp/dcps/av1"
)

// Controller drives playback on a renderer
type Controller interface {
	SetTransportURI(ctx context.Context, r Renderer, m Media) error
	Play(ctx context.Context, r Renderer, m Media) error
	Stop(ctx context.Context, r Renderer) error
}

// For returns the controller for a dialect
func For(d Dialect, client *Client) (Controller, error) {
	if client == nil {
		client = NewClient()
	}
	switch d {
	case OpenHome:
		return &openHome{client: client}, nil
	case AVTransport:
		return &avTransport{client: client}, nil
	default:
		return nil, fmt.Errorf("no controller for %s", d)
	}
}

// Play resolves the controller for r and starts playback of m
func Play(ctx context.Context, client *Client, r Renderer, m Media) error {
	c, err := For(r.Dialect, client)
	if err != nil {
		return &ControlError{Renderer: r.Name, Action: "Play", Err: err}
	}
	return c.Play(ctx, r, m)
}

// Stop resolves the controller for r and stops playback
func Stop(ctx context.Context, client *Client, r Renderer) error {
	c, err := For(r.Dialect, client)
	if err != nil {
		return &ControlError{Renderer: r.Name, Action: "Stop", Err: err}
	}
	return c.Stop(ctx, r)
}

func service(r Renderer, serviceType, action string) (Service, error) {
	svc, ok := r.Service(serviceType)
	if !ok {
		return Service{}, &ControlError{
			Renderer: r.Name,
			Action:   action,
			Err:      fmt.Errorf("service %s not advertised", serviceType),
		}
	}
	return svc, nil
}

type openHome struct {
	client *Client
}

// insertArgs are the Playlist Insert arguments, in wire order
type insertArgs struct {
	AfterID  string `soap:"AfterId"`
	URI      string `soap:"Uri"`
	Metadata string
}

func (o *openHome) SetTransportURI(ctx context.Context, r Renderer, m Media) error {
	svc, err := service(r, ServicePlaylist, "Insert")
	if err != nil {
		return err
	}
	if err := o.client.Call(ctx, r, svc, "DeleteAll", nil); err != nil {
		return err
	}
	return o.client.Call(ctx, r, svc, "Insert", &insertArgs{
		AfterID:  "0",
		URI:      m.URL,
		Metadata: DIDL(m),
	})
}

func (o *openHome) Play(ctx context.Context, r Renderer, m Media) error {
	if err := o.SetTransportURI(ctx, r, m); err != nil {
		return err
	}
	svc, err := service(r, ServicePlaylist, "Play")
	if err != nil {
		return err
	}
	return o.client.Call(ctx, r, svc, "Play", nil)
}

func (o *openHome) Stop(ctx context.Context, r Renderer) error {
	svc, err := service(r, ServicePlaylist, "Stop")
	if err != nil {
		return err
	}
	return o.client.Call(ctx, r, svc, "Stop", nil)
}

// avTransport drives instance 0 through goupnp's generated AVTransport:1 client
type avTransport struct {
	client *Client
}

func (a *avTransport) transport(r Renderer, action string) (*av1.AVTransport1, error) {
	svc, err := service(r, ServiceAVTransport, action)
	if err != nil {
		return nil, err
	}
	sc, err := a.client.soapClient(svc)
	if err != nil {
		return nil, controlError(r, action, err)
	}
	return &av1.AVTransport1{ServiceClient: goupnp.ServiceClient{SOAPClient: sc}}, nil
}

func (a *avTransport) SetTransportURI(ctx context.Context, r Renderer, m Media) error {
	t, err := a.transport(r, "SetAVTransportURI")
	if err != nil {
		return err
	}
	return controlError(r, "SetAVTransportURI", t.SetAVTransportURICtx(ctx, 0, m.URL, DIDL(m)))
}

func (a *avTransport) Play(ctx context.Context, r Renderer, m Media) error {
	if err := a.SetTransportURI(ctx, r, m); err != nil {
		return err
	}
	t, err := a.transport(r, "Play")
	if err != nil {
		return err
	}
	return controlError(r, "Play", t.PlayCtx(ctx, 0, "1"))
}

func (a *avTransport) Stop(ctx context.Context, r Renderer) error {
	t, err := a.transport(r, "Stop")
	if err != nil {
		return err
	}
	return controlError(r, "Stop", t.StopCtx(ctx, 0))
}
