package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/muurk/dlipower/internal/logging"
	"github.com/muurk/dlipower/internal/powerswitch"
)

const (
	DefaultInterval = 30 * time.Second
	DefaultClientID = "dlipower"

	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// Config holds the broker settings
type Config struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	Interval    time.Duration
}

// Switch is the part of a power switch client the bridge drives
type Switch interface {
	Name() string
	Reachable() bool
	Login(ctx context.Context) error
	StatusReport(ctx context.Context) powerswitch.Report
	Dispatch(ctx context.Context, cmd powerswitch.Command, refs []powerswitch.OutletRef, args ...string) (*powerswitch.DispatchResult, error)
}

// CommandResult is published after every outlet command
type CommandResult struct {
	Switch  string `json:"switch"`
	Outlet  string `json:"outlet"`
	Command string `json:"command"`
	Result  string `json:"result"`
	Error   string `json:"error,omitempty"`
}

// Bridge publishes switch status reports to MQTT and executes outlet
// commands received on "<prefix>/<switch>/outlet/<outlet>/set".
//
// Status reports are retained on "<prefix>/<switch>/status". The bridge's own
// availability is retained on "<prefix>/bridge/state" with an "offline" will.
type Bridge struct {
	cfg      Config
	client   pahomqtt.Client
	switches map[string]Switch // keyed by topic name

	ctx    context.Context
	cancel context.CancelFunc

	// serialises commands and refreshes per switch
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewBridge creates an unconnected bridge for the given switches
func NewBridge(cfg Config, switches []Switch) *Bridge {
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = DefaultTopicPrefix
	}
	if cfg.ClientID == "" {
		cfg.ClientID = DefaultClientID
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &Bridge{
		cfg:      cfg,
		switches: make(map[string]Switch, len(switches)),
		locks:    make(map[string]*sync.Mutex),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, sw := range switches {
		b.switches[topicName(sw.Name())] = sw
	}
	return b
}

// Connect dials the broker. Reconnects are handled by the client library;
// every (re)connect republishes the bridge state and resubscribes.
func (b *Bridge) Connect() error {
	opts := pahomqtt.NewClientOptions().
		AddBroker(b.cfg.Broker).
		SetClientID(b.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOrderMatters(false).
		SetWill(b.cfg.TopicPrefix+"/"+bridgeStateTopic, "offline", 1, true).
		SetOnConnectHandler(func(_ pahomqtt.Client) {
			logging.Info("MQTT connected", zap.String("broker", b.cfg.Broker))
			b.publishBridgeState("online")
			b.subscribeCommands()
			go b.PublishAll(b.ctx)
		}).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			logging.Warn("MQTT connection lost", zap.Error(err))
		})

	if b.cfg.Username != "" {
		opts.SetUsername(b.cfg.Username)
		opts.SetPassword(b.cfg.Password)
	}

	client := pahomqtt.NewClient(opts)
	b.client = client

	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("mqtt connect timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

// Run publishes every switch's status each interval until ctx ends, then
// stops the bridge.
func (b *Bridge) Run(ctx context.Context) error {
	logging.Info("MQTT bridge started",
		zap.String("prefix", b.cfg.TopicPrefix),
		zap.Duration("interval", b.cfg.Interval),
		zap.Int("switches", len(b.switches)),
	)

	ticker := time.NewTicker(b.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.Stop()
			return nil
		case <-ticker.C:
			b.PublishAll(ctx)
		}
	}
}

// Stop publishes the offline state and disconnects
func (b *Bridge) Stop() {
	b.cancel()
	if b.client == nil {
		return
	}
	b.publishBridgeState("offline")
	b.client.Disconnect(1000)
	logging.Info("MQTT bridge stopped")
}

// PublishAll publishes a status report for every switch, sorted by name
func (b *Bridge) PublishAll(ctx context.Context) {
	names := make([]string, 0, len(b.switches))
	for name := range b.switches {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if ctx.Err() != nil {
			return
		}
		b.publishStatus(ctx, name)
	}
}

// publishStatus logs in again if the switch was not detected, then publishes
// its report.
func (b *Bridge) publishStatus(ctx context.Context, name string) {
	sw := b.switches[name]
	lock := b.lock(name)
	lock.Lock()
	defer lock.Unlock()

	if !sw.Reachable() {
		if err := sw.Login(ctx); err != nil {
			logging.Debug("Switch still unreachable", zap.String("switch", name), zap.Error(err))
		}
	}

	report := sw.StatusReport(ctx)
	b.publish(statusTopic(b.cfg.TopicPrefix, name), mustJSON(report), true)
}

func (b *Bridge) subscribeCommands() {
	filter := commandFilter(b.cfg.TopicPrefix)
	token := b.client.Subscribe(filter, 1, func(_ pahomqtt.Client, msg pahomqtt.Message) {
		b.handleCommand(b.ctx, msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(publishTimeout) {
		logging.Warn("MQTT subscribe timeout", zap.String("topic", filter))
		return
	}
	if err := token.Error(); err != nil {
		logging.Warn("MQTT subscribe error", zap.String("topic", filter), zap.Error(err))
		return
	}
	logging.Debug("Subscribed", zap.String("topic", filter))
}

// handleCommand runs one outlet command and publishes its result followed by
// a fresh status report.
func (b *Bridge) handleCommand(ctx context.Context, topic string, payload []byte) {
	name, ref, ok := parseCommandTopic(b.cfg.TopicPrefix, topic)
	if !ok {
		logging.Warn("Ignoring malformed command topic", zap.String("topic", topic))
		return
	}
	sw, ok := b.switches[name]
	if !ok {
		logging.Warn("Command for unknown switch", zap.String("switch", name))
		return
	}

	out := CommandResult{Switch: name, Outlet: ref.String(), Command: string(payload)}
	cmd, ok := parsePayload(payload)
	if !ok {
		out.Result = powerswitch.Failed.String()
		out.Error = fmt.Sprintf("unsupported payload %q, want ON, OFF or CYCLE", payload)
		b.publish(resultTopic(b.cfg.TopicPrefix, name, ref.String()), mustJSON(out), false)
		return
	}
	out.Command = cmd.String()

	logging.Info("MQTT command",
		zap.String("switch", name),
		zap.Stringer("outlet", ref),
		zap.Stringer("command", cmd),
	)

	lock := b.lock(name)
	lock.Lock()
	res, err := sw.Dispatch(ctx, cmd, []powerswitch.OutletRef{ref})
	lock.Unlock()

	switch {
	case err != nil:
		out.Result = powerswitch.Failed.String()
		out.Error = powerswitch.GetShortErrorMessage(err)
	case len(res.Outcomes) == 0:
		out.Result = powerswitch.Failed.String()
		out.Error = "switch not reachable"
	default:
		o := res.Outcomes[0]
		out.Result = o.Result.String()
		if o.Err != nil {
			out.Error = powerswitch.GetShortErrorMessage(o.Err)
		}
	}
	b.publish(resultTopic(b.cfg.TopicPrefix, name, ref.String()), mustJSON(out), false)
	b.publishStatus(ctx, name)
}

func (b *Bridge) lock(name string) *sync.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.locks[name]
	if !ok {
		l = &sync.Mutex{}
		b.locks[name] = l
	}
	return l
}

func (b *Bridge) publishBridgeState(state string) {
	b.publish(b.cfg.TopicPrefix+"/"+bridgeStateTopic, []byte(state), true)
}

func (b *Bridge) publish(topic string, payload []byte, retained bool) {
	token := b.client.Publish(topic, 1, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		logging.Warn("MQTT publish timeout", zap.String("topic", topic))
		return
	}
	if err := token.Error(); err != nil {
		logging.Warn("MQTT publish error", zap.String("topic", topic), zap.Error(err))
	}
}

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
