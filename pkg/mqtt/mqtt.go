package mqtt

import (
	"crypto/md5"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/skohler/chamber-pi/pkg/control"
)

type Client struct {
	client      paho.Client
	clientID    string
	topicPrefix string
	qos         byte
	retained    bool
	sampleRate  int
	hassSensors map[string]HassSensor
	mu          sync.Mutex
}

func NewClient(broker *url.URL, sampleRate int) *Client {
	c := &Client{}

	var urls []*url.URL
	urls = append(urls, broker)

	hostname, _ := os.Hostname()
	hostname = strings.Split(hostname, ".")[0]
	clientID := hostname
	if clientID == "" {
		now := time.Now().UnixNano()
		sum := md5.New().Sum([]byte(strconv.FormatInt(now, 10)))
		clientID = string(sum)
	}

	c.qos = 1
	c.topicPrefix = "chamber-pi/" + hostname
	c.clientID = clientID
	c.hassSensors = make(map[string]HassSensor)

	slog.Info("connecting to mqtt", "url", broker, "clientid", clientID)
	c.client = paho.NewClient(&paho.ClientOptions{
		Servers:        urls,
		ClientID:       clientID,
		ConnectRetry:   true,
		ConnectTimeout: 30 * time.Second,
	})

	if sampleRate < 1 {
		sampleRate = 1
	}
	c.sampleRate = sampleRate

	return c
}

func (c *Client) Connect() error {
	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		slog.Error("mqtt connection failed", "error", token.Error())
		return token.Error()
	}
	return nil
}

func (c *Client) Subscribe(topic string, handler paho.MessageHandler) error {
	if token := c.client.Subscribe(topic, c.qos, handler); token.Wait() && token.Error() != nil {
		slog.Error("mqtt subscription failed", "error", token.Error())
		return token.Error()
	}
	return nil
}

// GetPublisher returns a runner that publishes every sampleRate-th snapshot
// to the Home Assistant sensors.
func (c *Client) GetPublisher(snapChan <-chan control.Snapshot) func() error {
	rawLux := c.RegisterHassSensor(c.NewHassSensor("Raw Lux", HassSensorIlluminance))
	filteredLux := c.RegisterHassSensor(c.NewHassSensor("Filtered Lux", HassSensorIlluminance))
	boundsLow := c.RegisterHassSensor(c.NewHassSensor("Bounds Low", HassSensorIlluminance))
	boundsHigh := c.RegisterHassSensor(c.NewHassSensor("Bounds High", HassSensorIlluminance))
	fraction := c.RegisterHassSensor(c.NewHassSensor("Brightness Fraction", HassSensorGeneric))
	pwmCode := c.RegisterHassSensor(c.NewHassSensor("PWM Code", HassSensorGeneric))
	mode := c.RegisterHassSensor(c.NewHassSensor("Control Mode", HassSensorGeneric))

	sample := NewSample(c.sampleRate)

	return func() error {
		for snap := range snapChan {
			if !sample.Ready() {
				continue
			}
			slog.Debug("mqtt publishing snapshot", "raw", snap.Raw, "code", snap.Command.Code, "module", "mqtt")
			c.HassPublishSensor(rawLux, strconv.FormatFloat(snap.Raw, 'f', 2, 64))
			c.HassPublishSensor(filteredLux, strconv.FormatFloat(snap.Filtered, 'f', 2, 64))
			c.HassPublishSensor(boundsLow, strconv.FormatFloat(snap.Bounds.Low, 'f', 2, 64))
			c.HassPublishSensor(boundsHigh, strconv.FormatFloat(snap.Bounds.High, 'f', 2, 64))
			c.HassPublishSensor(fraction, strconv.FormatFloat(snap.Fraction, 'f', 4, 64))
			c.HassPublishSensor(pwmCode, strconv.Itoa(snap.Command.Code))
			c.HassPublishSensor(mode, string(snap.Command.Source))
		}
		return nil
	}
}

func (p *Client) Publish(topic string, msg string) {
	t := p.client.Publish(topic, p.qos, p.retained, msg)
	go func() {
		_ = t.WaitTimeout(5 * time.Second)
		if t.Error() != nil {
			slog.Error("mqtt message publish failed", "error", t.Error())
		}
	}()
}
