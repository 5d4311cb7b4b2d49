package digitalocean

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/caddyserver/caddy/v2"
	"github.com/digitalocean/godo"
	"go.uber.org/zap"

	"gfx.cafe/gfx/regat/lib/reg"
	"gfx.cafe/gfx/regat/lib/util/dur"
)

func init() {
	caddy.RegisterModule((*Binder)(nil))
}

// Binder claims a DigitalOcean reserved IP for this droplet when the node
// starts serving and releases it when the node stops. Clients can be
// pointed at the reserved address and reach whichever node holds it.
type Binder struct {
	// APIKey authenticates against the DigitalOcean API.
	APIKey string `json:"api_key"`

	// ReservedIP is the address to claim.
	ReservedIP string `json:"reserved_ip"`

	// DropletID is the droplet the address binds to.
	DropletID int `json:"droplet_id"`

	// Retries is how many extra times a failed claim is attempted before
	// bootstrap aborts.
	Retries int `json:"retries,omitempty"`

	// RetryWait spaces claim attempts. PollInterval paces completion polls
	// on the assign and unassign actions.
	RetryWait    dur.Duration `json:"retry_wait,omitempty"`
	PollInterval dur.Duration `json:"poll_interval,omitempty"`

	do  *godo.Client
	log *zap.Logger
}

func (T *Binder) CaddyModule() caddy.ModuleInfo {
	return caddy.ModuleInfo{
		ID: "regat.binders.digitalocean",
		New: func() caddy.Module {
			return new(Binder)
		},
	}
}

func (T *Binder) Provision(ctx caddy.Context) error {
	T.log = ctx.Logger()

	if T.ReservedIP == "" {
		return errors.New("reserved_ip is required")
	}
	if T.DropletID == 0 {
		return errors.New("droplet_id is required")
	}
	if T.RetryWait == 0 {
		T.RetryWait = dur.Duration(5 * time.Second)
	}
	if T.PollInterval == 0 {
		T.PollInterval = dur.Duration(time.Second)
	}

	T.do = godo.NewFromToken(T.APIKey)
	return nil
}

// Start claims the reserved IP, retrying per config and waiting for the
// assign action to complete.
func (T *Binder) Start(ctx context.Context) error {
	var err error
	for attempt := 0; attempt <= T.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(T.RetryWait.Duration()):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err = T.claim(ctx); err == nil {
			T.log.Info("bound reserved ip",
				zap.String("ip", T.ReservedIP),
				zap.Int("droplet", T.DropletID),
			)
			return nil
		}
		T.log.Warn("claiming reserved ip",
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	return fmt.Errorf("claiming reserved ip %s: %w", T.ReservedIP, err)
}

func (T *Binder) claim(ctx context.Context) error {
	ip, _, err := T.do.ReservedIPs.Get(ctx, T.ReservedIP)
	if err == nil && ip.Droplet != nil && ip.Droplet.ID == T.DropletID {
		// already ours
		return nil
	}

	action, _, err := T.do.ReservedIPActions.Assign(ctx, T.ReservedIP, T.DropletID)
	if err != nil {
		return err
	}
	return T.await(ctx, action.ID)
}

// Shutdown releases the reserved IP if this droplet still holds it.
func (T *Binder) Shutdown(ctx context.Context) error {
	ip, _, err := T.do.ReservedIPs.Get(ctx, T.ReservedIP)
	if err != nil {
		return err
	}
	if ip.Droplet == nil || ip.Droplet.ID != T.DropletID {
		return nil
	}

	action, _, err := T.do.ReservedIPActions.Unassign(ctx, T.ReservedIP)
	if err != nil {
		return err
	}
	if err := T.await(ctx, action.ID); err != nil {
		return err
	}
	T.log.Info("released reserved ip", zap.String("ip", T.ReservedIP))
	return nil
}

// await polls until the action finishes.
func (T *Binder) await(ctx context.Context, actionID int) error {
	ticker := time.NewTicker(T.PollInterval.Duration())
	defer ticker.Stop()

	for {
		action, _, err := T.do.Actions.Get(ctx, actionID)
		if err != nil {
			return err
		}
		switch action.Status {
		case godo.ActionCompleted:
			return nil
		case godo.ActionInProgress:
		default:
			return fmt.Errorf("action %d finished %s", actionID, action.Status)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

var _ reg.Binder = (*Binder)(nil)
var _ caddy.Module = (*Binder)(nil)
var _ caddy.Provisioner = (*Binder)(nil)
