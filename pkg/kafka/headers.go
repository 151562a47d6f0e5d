package kafka

import (
	"sort"

	"github.com/segmentio/kafka-go"
)

// headerCarrier adapts message headers to the otel TextMapCarrier.
type headerCarrier map[string]string

func (c headerCarrier) Get(key string) string { return c[key] }

func (c headerCarrier) Set(key, value string) { c[key] = value }

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (c headerCarrier) headers() []kafka.Header {
	out := make([]kafka.Header, 0, len(c))
	for _, k := range c.Keys() {
		out = append(out, kafka.Header{Key: k, Value: []byte(c[k])})
	}
	return out
}

// HeaderMap flattens message headers, later keys winning.
func HeaderMap(headers []kafka.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for _, h := range headers {
		out[h.Key] = string(h.Value)
	}
	return out
}
