package mailer

import (
	"context"
	"errors"
	"fmt"
)

// Email is either an HTMLEmail or a TemplateEmail.
type Email interface {
	Recipient() string
	isEmail()
}

// HTMLEmail is a fully rendered message.
type HTMLEmail struct {
	To       string
	Subject  string
	Category string
	HTML     string
	Text     string
}

// TemplateEmail references a template stored at the provider and the variables
// to fill it with. Fallback is sent instead by transports without stored templates.
type TemplateEmail struct {
	To         string
	TemplateID string
	Variables  map[string]any
	Fallback   *HTMLEmail
}

func (e HTMLEmail) Recipient() string     { return e.To }
func (e TemplateEmail) Recipient() string { return e.To }
func (HTMLEmail) isEmail()                {}
func (TemplateEmail) isEmail()            {}

// Transport delivers rendered messages and returns the provider message id.
type Transport interface {
	SendHTML(ctx context.Context, e HTMLEmail) (string, error)
}

// TemplateTransport is a Transport that can also send provider-stored templates.
type TemplateTransport interface {
	Transport
	SendTemplate(ctx context.Context, e TemplateEmail) (string, error)
}

var ErrTemplatesUnsupported = errors.New("transport does not support stored templates and no fallback was rendered")

// Dispatch sends e through t, choosing the transport call by variant.
func Dispatch(ctx context.Context, t Transport, e Email) (string, error) {
	switch m := e.(type) {
	case HTMLEmail:
		return t.SendHTML(ctx, m)
	case *HTMLEmail:
		return t.SendHTML(ctx, *m)
	case TemplateEmail:
		return dispatchTemplate(ctx, t, m)
	case *TemplateEmail:
		return dispatchTemplate(ctx, t, *m)
	default:
		return "", fmt.Errorf("unknown email variant %T", e)
	}
}

func dispatchTemplate(ctx context.Context, t Transport, m TemplateEmail) (string, error) {
	if tt, ok := t.(TemplateTransport); ok && m.TemplateID != "" {
		return tt.SendTemplate(ctx, m)
	}
	if m.Fallback == nil {
		return "", ErrTemplatesUnsupported
	}
	fb := *m.Fallback
	if fb.To == "" {
		fb.To = m.To
	}
	return t.SendHTML(ctx, fb)
}
