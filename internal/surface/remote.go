package surface

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Remote is the physical-device adapter. Drawing happens into the embedded
// frame buffer; Push publishes the finished frame to the device's Redis
// channel as base64 PNG. Channel switches and scroll-text run device-side,
// so those become directives on the same channel instead of buffer work.
type Remote struct {
	*Bitmap

	deviceID string
	client   *redis.Client
	logger   *zap.Logger
}

// NewRemote creates a device adapter for the given device id.
func NewRemote(deviceID string, size int, client *redis.Client, logger *zap.Logger) *Remote {
	return &Remote{
		Bitmap:   NewBitmap(size),
		deviceID: deviceID,
		client:   client,
		logger:   logger,
	}
}

// DeviceID returns the target device id.
func (r *Remote) DeviceID() string { return r.deviceID }

type frameMessage struct {
	Type     string    `json:"type"`
	DeviceID string    `json:"device_id"`
	Size     int       `json:"size"`
	Frame    string    `json:"frame"` // base64 PNG
	SentAt   time.Time `json:"sent_at"`
}

type directiveMessage struct {
	Type     string    `json:"type"`
	DeviceID string    `json:"device_id"`
	Channel  string    `json:"channel,omitempty"`
	Subpage  int       `json:"subpage,omitempty"`
	Text     string    `json:"text,omitempty"`
	X        int       `json:"x,omitempty"`
	Y        int       `json:"y,omitempty"`
	Color    [3]uint8  `json:"color,omitempty"`
	TextSlot int       `json:"text_slot,omitempty"`
	Width    int       `json:"width,omitempty"`
	Speed    int       `json:"speed,omitempty"`
	Dir      string    `json:"direction,omitempty"`
	SentAt   time.Time `json:"sent_at"`
}

// Push implements Surface: commits the pending frame to the device.
func (r *Remote) Push(ctx context.Context) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, r.Image()); err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}

	msg := frameMessage{
		Type:     "frame",
		DeviceID: r.deviceID,
		Size:     r.Size(),
		Frame:    base64.StdEncoding.EncodeToString(buf.Bytes()),
		SentAt:   time.Now(),
	}
	if err := r.publish(ctx, msg); err != nil {
		return fmt.Errorf("failed to push frame to device %s: %w", r.deviceID, err)
	}

	r.logger.Debug("Pushed frame",
		zap.String("device_id", r.deviceID),
		zap.Int("bytes", buf.Len()))
	return nil
}

// SendText implements Surface: forwards the scroll directive to the device.
func (r *Remote) SendText(ctx context.Context, msg ScrollText) error {
	err := r.publish(ctx, directiveMessage{
		Type:     "scroll_text",
		DeviceID: r.deviceID,
		Text:     msg.Text,
		X:        msg.At.X,
		Y:        msg.At.Y,
		Color:    [3]uint8{msg.Color.R, msg.Color.G, msg.Color.B},
		TextSlot: msg.Channel,
		Width:    msg.Width,
		Speed:    msg.Speed,
		Dir:      msg.Direction,
		SentAt:   time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to send scroll text to device %s: %w", r.deviceID, err)
	}
	return nil
}

// SetChannel implements Surface: switches the device to a built-in mode.
func (r *Remote) SetChannel(ctx context.Context, name string) error {
	err := r.publish(ctx, directiveMessage{
		Type:     "set_channel",
		DeviceID: r.deviceID,
		Channel:  name,
		SentAt:   time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to set channel on device %s: %w", r.deviceID, err)
	}
	return nil
}

// SetSubpage implements Surface.
func (r *Remote) SetSubpage(ctx context.Context, id int) error {
	err := r.publish(ctx, directiveMessage{
		Type:     "set_subpage",
		DeviceID: r.deviceID,
		Subpage:  id,
		SentAt:   time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to set subpage on device %s: %w", r.deviceID, err)
	}
	return nil
}

func (r *Remote) publish(ctx context.Context, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal device message: %w", err)
	}
	channel := fmt.Sprintf("device:%s", r.deviceID)
	return r.client.Publish(ctx, channel, body).Err()
}

var _ Surface = (*Remote)(nil)
var _ Surface = (*Bitmap)(nil)
