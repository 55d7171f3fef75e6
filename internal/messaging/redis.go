package messaging

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"thermo-service/internal/logger"
	"thermo-service/internal/types"
)

type Callbacks struct {
	RelayCallback    func(bool) error   // true for "on", false for "off"
	TimerCallback    func(string) error // "start", "stop"
	ParamsCallback   func(string) error // "persist", "reload"
	SettingsCallback func(string) error // setting key that was updated (e.g. "thermo.upper_limit")
}

type RedisClient struct {
	client    *redis.Client
	callbacks Callbacks
	logger    *logger.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

func NewRedisClient(host string, port int, l *logger.Logger, callbacks Callbacks) *RedisClient {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisClient{
		client: redis.NewClient(&redis.Options{
			Addr: fmt.Sprintf("%s:%d", host, port),
			DB:   0,
		}),
		callbacks: callbacks,
		logger:    l,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// SetCallbacks installs the command handlers. Must be called before
// StartListening.
func (r *RedisClient) SetCallbacks(callbacks Callbacks) {
	r.callbacks = callbacks
}

func (r *RedisClient) Connect() error {
	r.logger.Infof("Attempting to connect to Redis at %s", r.client.Options().Addr)

	if err := r.client.Ping(r.ctx).Err(); err != nil {
		r.logger.Infof("Redis connection failed: %v", err)
		return fmt.Errorf("Redis connection failed: %w", err)
	}
	r.logger.Infof("Successfully connected to Redis")
	return nil
}

// StartListening starts all Redis listeners after system initialization
// is complete
func (r *RedisClient) StartListening() error {
	r.logger.Infof("Starting Redis listeners")

	pubsub := r.client.Subscribe(r.ctx, "thermo", "settings")
	r.logger.Infof("Subscribed to Redis channels: thermo, settings")

	r.wg.Add(1)
	go r.redisListener(pubsub)

	// List command listeners for LPUSH commands
	r.wg.Add(3)
	go r.listCommandListener("thermo:relay", r.handleRelayCommand)
	go r.listCommandListener("thermo:timer", r.handleTimerCommand)
	go r.listCommandListener("thermo:params", r.handleParamsCommand)

	return nil
}

func (r *RedisClient) listCommandListener(key string, handler func(string) error) {
	defer r.wg.Done()
	r.logger.Infof("Starting list command listener for %s", key)

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Infof("Context cancelled, exiting %s listener", key)
			return
		default:
			// Use BRPOP with a short timeout to allow periodic context
			// cancellation checks
			result, err := r.client.BRPop(r.ctx, 5*time.Second, key).Result()
			if err != nil {
				if err == redis.Nil {
					continue
				}
				if err == context.Canceled {
					r.logger.Infof("Context cancelled, exiting %s listener", key)
					return
				}
				r.logger.Infof("Error reading from %s list: %v", key, err)
				continue
			}

			if len(result) >= 2 { // BRPOP returns [key, value]
				value := result[1]
				r.logger.Debugf("Received command from %s: %s", key, value)
				if err := handler(value); err != nil {
					r.logger.Warnf("Error handling %s command: %v", key, err)
				}
			}
		}
	}
}

func (r *RedisClient) handleRelayCommand(value string) error {
	if r.callbacks.RelayCallback == nil {
		return nil
	}
	switch value {
	case "on", "off":
		return r.callbacks.RelayCallback(value == "on")
	default:
		r.logger.Infof("Invalid relay command value: %s", value)
		return fmt.Errorf("invalid relay command: %s", value)
	}
}

func (r *RedisClient) handleTimerCommand(value string) error {
	if r.callbacks.TimerCallback == nil {
		return nil
	}
	switch value {
	case "start", "stop":
		return r.callbacks.TimerCallback(value)
	default:
		r.logger.Infof("Invalid timer command value: %s", value)
		return fmt.Errorf("invalid timer command: %s", value)
	}
}

func (r *RedisClient) handleParamsCommand(value string) error {
	if r.callbacks.ParamsCallback == nil {
		return nil
	}
	switch value {
	case "persist", "reload":
		return r.callbacks.ParamsCallback(value)
	default:
		r.logger.Infof("Invalid params command value: %s", value)
		return fmt.Errorf("invalid params command: %s", value)
	}
}

func (r *RedisClient) redisListener(pubsub *redis.PubSub) {
	defer r.wg.Done()
	defer pubsub.Close()

	r.logger.Infof("Starting Redis message listener")
	channel := pubsub.Channel()

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Infof("Context cancelled, exiting listener")
			return
		case msg, ok := <-channel:
			if !ok {
				r.logger.Infof("Redis channel closed unexpectedly")
				r.logger.Fatalf("Redis connection lost, exiting to allow systemd restart")
			}
			if msg == nil {
				r.logger.Infof("Received nil Redis message")
				r.logger.Fatalf("Redis connection lost, exiting to allow systemd restart")
			}

			r.logger.Debugf("Received Redis message: channel=%s payload=%s", msg.Channel, msg.Payload)

			switch msg.Channel {
			case "settings":
				if r.callbacks.SettingsCallback != nil {
					r.logger.Infof("Processing settings update: %s", msg.Payload)
					if err := r.callbacks.SettingsCallback(msg.Payload); err != nil {
						r.logger.Infof("Failed to handle settings update: %v", err)
					}
				}

			case "thermo":
				r.processThermoMessage(msg.Payload)
			}
		}
	}
}

func (r *RedisClient) processThermoMessage(payload string) {
	// Handles hash-based commands signalled via the "thermo" channel.
	// The payload is the hash field that was modified.
	var handler func(string) error
	switch payload {
	case "thermo:relay":
		handler = r.handleRelayCommand
	case "thermo:timer":
		handler = r.handleTimerCommand
	case "thermo:params":
		handler = r.handleParamsCommand
	case "state", "relay", "temperature", "temperature:raw", "menu",
		"fermentation:remaining":
		// State updates published by thermo-service itself, ignore silently
		return
	default:
		if len(payload) > 6 && payload[:6] == "param:" {
			// Parameter mirror updates, also ours
			return
		}
		r.logger.Infof("Unhandled thermo payload: %s", payload)
		return
	}

	value, err := r.client.HGet(r.ctx, "thermo", payload).Result()
	if err == redis.Nil {
		return
	}
	if err != nil {
		r.logger.Infof("Error reading hash field %s: %v", payload, err)
		return
	}

	if err := handler(value); err != nil {
		r.logger.Infof("Error handling %s command: %v", payload, err)
	}

	// Clear the field to acknowledge processing
	if err := r.client.HDel(r.ctx, "thermo", payload).Err(); err != nil {
		r.logger.Infof("Error clearing hash field %s: %v", payload, err)
	}
}

// publishHashSet is a helper that atomically updates a hash field and
// publishes a notification
func (r *RedisClient) publishHashSet(hash, field string, value interface{}, channel, payload string) error {
	pipe := r.client.Pipeline()
	pipe.HSet(r.ctx, hash, field, value)
	pipe.Publish(r.ctx, channel, payload)
	_, err := pipe.Exec(r.ctx)
	return err
}

// publishHashDel is a helper that atomically deletes a hash field and
// publishes a notification
func (r *RedisClient) publishHashDel(hash, field, channel, payload string) error {
	pipe := r.client.Pipeline()
	pipe.HDel(r.ctx, hash, field)
	pipe.Publish(r.ctx, channel, payload)
	_, err := pipe.Exec(r.ctx)
	return err
}

// PublishControlState publishes the control plane state.
func (r *RedisClient) PublishControlState(state types.ControlState) error {
	r.logger.Infof("Publishing control state: %s", state)
	timestamp := time.Now().Format(time.RFC3339)

	pipe := r.client.Pipeline()
	pipe.HSet(r.ctx, "thermo", "state", string(state))
	pipe.HSet(r.ctx, "thermo", "state:timestamp", timestamp)
	pipe.Publish(r.ctx, "thermo", "state")
	_, err := pipe.Exec(r.ctx)

	if err != nil {
		r.logger.Warnf("Failed to publish control state: %v", err)
		return err
	}
	return nil
}

// PublishRelayState publishes the relay level.
func (r *RedisClient) PublishRelayState(closed bool) error {
	state := "open"
	if closed {
		state = "closed"
	}
	if err := r.publishHashSet("thermo", "relay", state, "thermo", "relay"); err != nil {
		r.logger.Warnf("Failed to publish relay state: %v", err)
		return err
	}
	return nil
}

// formatTenths renders a tenths value as a decimal string. The sign is
// applied to the magnitude so values in (-1.0, 0.0) keep it; a plain
// "%d.%d" would publish -0.5 as "0.5".
func formatTenths(tenths int) string {
	sign := ""
	if tenths < 0 {
		sign = "-"
		tenths = -tenths
	}
	return fmt.Sprintf("%s%d.%d", sign, tenths/10, tenths%10)
}

// PublishTemperature publishes the calibrated temperature and the raw
// filtered reading.
func (r *RedisClient) PublishTemperature(tenths, rawFiltered int) error {
	pipe := r.client.Pipeline()
	pipe.HSet(r.ctx, "thermo", "temperature", formatTenths(tenths))
	pipe.HSet(r.ctx, "thermo", "temperature:raw", rawFiltered)
	pipe.Publish(r.ctx, "thermo", "temperature")
	_, err := pipe.Exec(r.ctx)
	if err != nil {
		r.logger.Warnf("Failed to publish temperature: %v", err)
		return err
	}
	return nil
}

// PublishMenuMode publishes the front panel screen.
func (r *RedisClient) PublishMenuMode(mode types.MenuMode) error {
	if err := r.publishHashSet("thermo", "menu", string(mode), "thermo", "menu"); err != nil {
		r.logger.Warnf("Failed to publish menu mode: %v", err)
		return err
	}
	return nil
}

// PublishFermentationRemaining publishes the countdown in whole
// seconds.
func (r *RedisClient) PublishFermentationRemaining(remaining time.Duration) error {
	secs := int64(remaining / time.Second)
	if err := r.publishHashSet("thermo", "fermentation:remaining", secs, "thermo", "fermentation:remaining"); err != nil {
		r.logger.Warnf("Failed to publish fermentation countdown: %v", err)
		return err
	}
	return nil
}

// ClearFermentationRemaining removes the countdown field.
func (r *RedisClient) ClearFermentationRemaining() error {
	if err := r.publishHashDel("thermo", "fermentation:remaining", "thermo", "fermentation:remaining"); err != nil {
		r.logger.Warnf("Failed to clear fermentation countdown: %v", err)
		return err
	}
	return nil
}

// SetParamValue mirrors one stored setting into the hash.
func (r *RedisClient) SetParamValue(key string, value int) error {
	field := fmt.Sprintf("param:%s", key)
	if err := r.publishHashSet("thermo", field, value, "thermo", field); err != nil {
		r.logger.Warnf("Failed to mirror setting %s: %v", key, err)
		return err
	}
	return nil
}

// GetHashField reads a field from a Redis hash using HGET
func (r *RedisClient) GetHashField(hash, field string) (string, error) {
	value, err := r.client.HGet(r.ctx, hash, field).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get hash field %s from %s: %w", field, hash, err)
	}
	return value, nil
}

func (r *RedisClient) Close() error {
	r.logger.Infof("Closing Redis client")
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Infof("All Redis goroutines finished")
	case <-time.After(5 * time.Second):
		r.logger.Infof("Timeout waiting for Redis goroutines to finish")
	}

	return r.client.Close()
}
