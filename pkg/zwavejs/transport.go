// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 j9brown

package zwavejs

import (
	"context"
)

// NodeTransport adapts the gateway client to the transfer protocol's
// packet exchange: one proprietary send per call, one reply or one timeout
// back. It satisfies pe653.Transport.
type NodeTransport struct {
	client *Client
	nodeID int
}

// Transport returns a packet transport bound to one node.
func (c *Client) Transport(nodeID int) *NodeTransport {
	return &NodeTransport{client: c, nodeID: nodeID}
}

func (t *NodeTransport) SendAndReceive(ctx context.Context, packet []byte) ([]byte, error) {
	return t.client.SendCommand(ctx, t.nodeID, packet)
}
