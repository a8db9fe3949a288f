// Package whatsapp mirrors sync summaries to a WhatsApp chat.
package whatsapp

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mdp/qrterminal/v3"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	"github.com/coalharbourgroup/PM-email-vcs/internal/logger"
)

// Config holds the session store and device settings
type Config struct {
	Driver     string
	DSN        string
	LogLevel   string
	DeviceName string
}

// backoff controls reconnection attempts after a disconnect
type backoff struct {
	attempts int
	initial  time.Duration
	max      time.Duration
	factor   float64
}

// Client is a linked WhatsApp device able to send text messages
type Client struct {
	wa  *whatsmeow.Client
	log *logger.Logger

	mu              sync.RWMutex
	connected       bool
	cancelReconnect context.CancelFunc
	retry           backoff
}

// New opens the session store and prepares the device. Call Connect to go online.
func New(ctx context.Context, cfg Config, log *logger.Logger) (*Client, error) {
	container, err := sqlstore.New(ctx, cfg.Driver, cfg.DSN, waLog.Stdout("Database", cfg.LogLevel, true))
	if err != nil {
		return nil, fmt.Errorf("failed to open whatsapp session store: %w", err)
	}

	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get whatsapp device: %w", err)
	}

	name := cfg.DeviceName
	if name == "" {
		name = "EmailVCS"
	}
	store.SetOSInfo(name, [3]uint32{0, 1, 0})
	device.Platform = name

	c := &Client{
		wa:  whatsmeow.NewClient(device, waLog.Stdout("Client", cfg.LogLevel, true)),
		log: log.Component("whatsapp"),
		retry: backoff{
			attempts: 10,
			initial:  5 * time.Second,
			max:      5 * time.Minute,
			factor:   1.5,
		},
	}
	c.wa.AddEventHandler(c.onEvent)

	return c, nil
}

func (c *Client) onEvent(evt interface{}) {
	switch v := evt.(type) {
	case *events.Connected:
		c.mu.Lock()
		c.connected = true
		if c.cancelReconnect != nil {
			c.cancelReconnect()
			c.cancelReconnect = nil
		}
		c.mu.Unlock()
		c.log.Info("WhatsApp client connected")

	case *events.Disconnected:
		c.mu.Lock()
		c.connected = false
		idle := c.cancelReconnect == nil
		c.mu.Unlock()

		c.log.Warn("WhatsApp client disconnected")
		if idle {
			go c.reconnect()
		}

	case *events.StreamError:
		c.log.Errorf("WhatsApp stream error: %v", v)
	}
}

func (c *Client) reconnect() {
	c.mu.Lock()
	if c.connected || c.cancelReconnect != nil {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancelReconnect = cancel
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.cancelReconnect = nil
		c.mu.Unlock()
	}()

	wait := c.retry.initial
	for attempt := 1; attempt <= c.retry.attempts; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		if c.wa.IsConnected() {
			c.mu.Lock()
			c.connected = true
			c.mu.Unlock()
			return
		}

		c.log.Infof("Reconnection attempt %d/%d", attempt, c.retry.attempts)
		if err := c.wa.Connect(); err != nil {
			c.log.Errorf("Reconnection attempt %d failed: %v", attempt, err)
			wait = time.Duration(float64(wait) * c.retry.factor)
			if wait > c.retry.max {
				wait = c.retry.max
			}
			continue
		}
		return
	}

	c.log.Error("All reconnection attempts failed", nil)
}

// Connect goes online. Without a stored session it starts QR pairing in the
// background and returns immediately.
func (c *Client) Connect(ctx context.Context) error {
	if c.wa.Store.ID == nil {
		c.log.Info("No WhatsApp session found, starting QR pairing")
		go c.pair(ctx)
		return nil
	}

	if err := c.wa.Connect(); err != nil {
		return fmt.Errorf("failed to connect whatsapp client: %w", err)
	}
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
	c.log.Infof("WhatsApp connected as %s", c.wa.Store.ID.String())
	return nil
}

// pair renders QR codes until one is scanned, the attempts run out or ctx ends
func (c *Client) pair(ctx context.Context) {
	const attempts = 5

	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return
		}

		qrCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
		ok := c.pairOnce(ctx, qrCtx)
		cancel()
		if ok {
			c.mu.Lock()
			c.connected = true
			c.mu.Unlock()
			c.log.Info("WhatsApp pairing successful")
			return
		}

		c.log.Warnf("WhatsApp pairing attempt %d/%d failed", attempt, attempts)
		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}

	c.log.Error("Failed to pair WhatsApp device", nil)
}

func (c *Client) pairOnce(ctx, qrCtx context.Context) bool {
	qrChan, err := c.wa.GetQRChannel(qrCtx)
	if err != nil {
		c.log.Errorf("Failed to get QR channel: %v", err)
		return false
	}
	if !c.wa.IsConnected() {
		if err := c.wa.Connect(); err != nil {
			c.log.Errorf("Failed to connect client: %v", err)
			return false
		}
	}

	for {
		select {
		case <-ctx.Done():
			return false
		case <-qrCtx.Done():
			return false
		case evt, ok := <-qrChan:
			if !ok {
				return false
			}
			switch evt.Event {
			case "code":
				fmt.Println(strings.Repeat("=", 64))
				fmt.Println("Scan this code in WhatsApp > Linked Devices to receive sync summaries")
				qrterminal.GenerateWithConfig(evt.Code, qrterminal.Config{
					Level:      qrterminal.M,
					Writer:     os.Stdout,
					HalfBlocks: true,
					QuietZone:  1,
				})
				fmt.Println(strings.Repeat("=", 64))
			case "success":
				return true
			case "timeout":
				return false
			default:
				c.log.Debugf("Pairing event: %s", evt.Event)
			}
		}
	}
}

// Disconnect stops reconnection attempts and goes offline
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancelReconnect != nil {
		c.cancelReconnect()
		c.cancelReconnect = nil
	}
	c.wa.Disconnect()
	c.connected = false
}

// IsConnected reports whether the device is online with a valid session
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && c.wa.IsConnected() && c.wa.Store.ID != nil
}

// SendText sends a text message to a user or group JID
func (c *Client) SendText(ctx context.Context, to, text string) error {
	if !c.IsConnected() {
		return fmt.Errorf("whatsapp client is not connected")
	}

	jid, err := types.ParseJID(to)
	if err != nil {
		return fmt.Errorf("invalid JID %s: %w", to, err)
	}

	msg := &waE2E.Message{Conversation: proto.String(text)}
	if _, err := c.wa.SendMessage(ctx, jid, msg); err != nil {
		return fmt.Errorf("failed to send whatsapp message: %w", err)
	}

	c.log.Infof("Summary sent to %s", to)
	return nil
}
