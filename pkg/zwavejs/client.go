// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 j9brown

// Package zwavejs talks to a Z-Wave JS UI gateway over its MQTT api.
//
// Each rpc kind has a "/set" request topic and an un-suffixed response
// topic under the configured api root. Requests on a kind are strictly
// serial: the client holds a single pending-reply slot per kind and drops
// any response that arrives without a waiter.
package zwavejs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
)

const (
	kindSendCommand    = "sendCommand"
	kindDriverFunction = "driverFunction"

	// exchangeTimeout bounds one rpc round trip, device reply included.
	// The device's own retry cadence sits well inside this window.
	exchangeTimeout = 10 * time.Second

	connectTimeout = 10 * time.Second
)

// Client is an MQTT-backed Z-Wave JS UI api client.
type Client struct {
	mqtt     mqtt.Client
	apiTopic string
	log      *logrus.Logger

	mu      sync.Mutex
	pending map[string]chan rpcResponse
}

// Dial connects to the broker and subscribes to the api response topics.
// Callers must Close the client to release the subscriptions.
func Dial(brokerURL, apiTopic string, log *logrus.Logger) (*Client, error) {
	c := &Client{
		apiTopic: apiTopic,
		log:      log,
		pending:  make(map[string]chan rpcResponse),
	}

	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(fmt.Sprintf("pe653-updater-%d", time.Now().UnixNano())).
		SetConnectTimeout(connectTimeout)
	c.mqtt = mqtt.NewClient(opts)

	if token := c.mqtt.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect %s: %w", brokerURL, token.Error())
	}

	for _, kind := range []string{kindSendCommand, kindDriverFunction} {
		kind := kind
		topic := c.responseTopic(kind)
		token := c.mqtt.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			c.dispatch(kind, msg.Payload())
		})
		if token.Wait() && token.Error() != nil {
			c.mqtt.Disconnect(250)
			return nil, fmt.Errorf("subscribe %s: %w", topic, token.Error())
		}
	}
	return c, nil
}

// Close releases the subscriptions and disconnects from the broker.
func (c *Client) Close() {
	c.mqtt.Unsubscribe(c.responseTopic(kindSendCommand), c.responseTopic(kindDriverFunction))
	c.mqtt.Disconnect(250)
}

func (c *Client) requestTopic(kind string) string {
	return c.apiTopic + "/" + kind + "/set"
}

func (c *Client) responseTopic(kind string) string {
	return c.apiTopic + "/" + kind
}

// dispatch routes a response payload to the kind's waiter, if any.
func (c *Client) dispatch(kind string, payload []byte) {
	var resp rpcResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		c.log.WithError(err).Warnf("discarding unparseable %s response", kind)
		return
	}

	c.mu.Lock()
	waiter := c.pending[kind]
	delete(c.pending, kind)
	c.mu.Unlock()

	if waiter == nil {
		c.log.Debugf("discarding %s response with no waiter", kind)
		return
	}
	waiter <- resp
}

// call publishes one request and waits for its response. A nil response
// with nil error means the exchange window expired.
func (c *Client) call(ctx context.Context, kind string, args []any) (*rpcResponse, error) {
	body, err := json.Marshal(rpcRequest{Args: args})
	if err != nil {
		return nil, err
	}

	waiter := make(chan rpcResponse, 1)
	c.mu.Lock()
	if _, busy := c.pending[kind]; busy {
		c.mu.Unlock()
		return nil, &RpcError{Kind: kind, Reason: "request already in flight"}
	}
	c.pending[kind] = waiter
	c.mu.Unlock()

	abandon := func() {
		c.mu.Lock()
		delete(c.pending, kind)
		c.mu.Unlock()
	}

	if token := c.mqtt.Publish(c.requestTopic(kind), 0, false, body); token.Wait() && token.Error() != nil {
		abandon()
		return nil, fmt.Errorf("publish %s: %w", c.requestTopic(kind), token.Error())
	}

	select {
	case resp := <-waiter:
		return &resp, nil
	case <-time.After(exchangeTimeout):
		abandon()
		return nil, nil
	case <-ctx.Done():
		abandon()
		return nil, ctx.Err()
	}
}

// SendCommand forwards packet to the node over the Manufacturer Proprietary
// command class and returns the device's reply packet, or nil on timeout.
func (c *Client) SendCommand(ctx context.Context, nodeID int, packet []byte) ([]byte, error) {
	target := commandTarget{NodeID: nodeID, Endpoint: 0, CommandClass: commandClassProprietary}
	args := []any{target, methodSendAndReceive, []any{manufacturerID, newJsBuffer(packet)}}

	resp, err := c.call(ctx, kindSendCommand, args)
	if err != nil || resp == nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &RpcError{Kind: kindSendCommand, Reason: "gateway reported failure: " + resp.Message}
	}
	if err := c.verifyCommandEcho(resp, target); err != nil {
		return nil, err
	}

	// No result means the device never answered inside the gateway's own
	// window: a protocol timeout, not an rpc failure.
	if len(resp.Result) == 0 || string(resp.Result) == "null" {
		return nil, nil
	}
	var result struct {
		Data *jsBuffer `json:"data"`
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, &RpcError{Kind: kindSendCommand, Reason: "malformed result: " + err.Error()}
	}
	if result.Data == nil {
		return nil, nil
	}
	reply, err := result.Data.bytes()
	if err != nil {
		return nil, &RpcError{Kind: kindSendCommand, Reason: err.Error()}
	}
	return reply, nil
}

// verifyCommandEcho checks that a sendCommand response belongs to the
// request we issued; a mismatch means crossed wires and is fatal.
func (c *Client) verifyCommandEcho(resp *rpcResponse, want commandTarget) error {
	if len(resp.Args) < 2 {
		return &RpcError{Kind: kindSendCommand, Reason: "response does not echo the request"}
	}
	var target commandTarget
	if err := json.Unmarshal(resp.Args[0], &target); err != nil {
		return &RpcError{Kind: kindSendCommand, Reason: "malformed echo: " + err.Error()}
	}
	var method string
	if err := json.Unmarshal(resp.Args[1], &method); err != nil {
		return &RpcError{Kind: kindSendCommand, Reason: "malformed echo: " + err.Error()}
	}
	if target != want || method != methodSendAndReceive {
		return &RpcError{Kind: kindSendCommand, Reason: fmt.Sprintf(
			"response for node %d %s, expected node %d %s",
			target.NodeID, method, want.NodeID, methodSendAndReceive)}
	}
	return nil
}

// DriverFunction runs a snippet of code in the gateway's driver context and
// returns its result verbatim.
func (c *Client) DriverFunction(ctx context.Context, code string) (json.RawMessage, error) {
	resp, err := c.call(ctx, kindDriverFunction, []any{code})
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, &RpcError{Kind: kindDriverFunction, Reason: "timed out waiting for the gateway"}
	}
	if !resp.Success {
		return nil, &RpcError{Kind: kindDriverFunction, Reason: "gateway reported failure: " + resp.Message}
	}
	if len(resp.Args) < 1 {
		return nil, &RpcError{Kind: kindDriverFunction, Reason: "response does not echo the request"}
	}
	var echoed string
	if err := json.Unmarshal(resp.Args[0], &echoed); err != nil || echoed != code {
		return nil, &RpcError{Kind: kindDriverFunction, Reason: "response echoes a different request"}
	}
	return resp.Result, nil
}
