// ABOUTME: UPnP control actions over goupnp's SOAP client
// ABOUTME: Wraps transport failures and UPnP faults in ControlError
package renderer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/huin/goupnp/soap"
)

// DefaultControlTimeout bounds a single SOAP request
const DefaultControlTimeout = 5 * time.Second

// ControlError reports a failed control action against a renderer
type ControlError struct {
	Renderer    string
	Action      string
	FaultCode   string // UPnP errorCode, empty unless the device sent one
	Description string
	Err         error
}

func (e *ControlError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s failed", e.Renderer, e.Action)
	switch {
	case e.FaultCode != "":
		fmt.Fprintf(&b, ": UPnP error %s", e.FaultCode)
		if e.Description != "" {
			fmt.Fprintf(&b, " %s", e.Description)
		}
	case e.Description != "":
		fmt.Fprintf(&b, ": %s", e.Description)
	case e.Err != nil:
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ControlError) Unwrap() error { return e.Err }

// Client issues control actions. HTTP is copied into every SOAP client.
type Client struct {
	HTTP *http.Client
}

// NewClient returns a client with the default control timeout
func NewClient() *Client {
	return &Client{HTTP: &http.Client{Timeout: DefaultControlTimeout}}
}

func (c *Client) soapClient(svc Service) (*soap.SOAPClient, error) {
	u, err := url.Parse(svc.ControlURL)
	if err != nil {
		return nil, fmt.Errorf("bad control URL %q: %w", svc.ControlURL, err)
	}
	sc := soap.NewSOAPClient(*u)
	if c.HTTP != nil {
		sc.HTTPClient = *c.HTTP
	}
	return sc, nil
}

// Call invokes action on svc. in is nil or a pointer to a struct of string
// fields, sent in field order; a soap tag overrides the argument name.
func (c *Client) Call(ctx context.Context, r Renderer, svc Service, action string, in interface{}) error {
	sc, err := c.soapClient(svc)
	if err != nil {
		return controlError(r, action, err)
	}
	return controlError(r, action, sc.PerformActionCtx(ctx, svc.Type, action, in, nil))
}

// controlError wraps err for r, lifting the UPnP error out of a SOAP fault
func controlError(r Renderer, action string, err error) error {
	if err == nil {
		return nil
	}
	ce := &ControlError{Renderer: r.Name, Action: action, Err: err}

	var fault *soap.SOAPFaultError
	if errors.As(err, &fault) {
		upnp := fault.Detail.UPnPError
		if upnp.Errorcode != 0 {
			ce.FaultCode = strconv.Itoa(upnp.Errorcode)
		}
		ce.Description = strings.TrimSpace(upnp.ErrorDescription)
		if ce.Description == "" {
			ce.Description = strings.TrimSpace(fault.FaultString)
		}
	}
	return ce
}
