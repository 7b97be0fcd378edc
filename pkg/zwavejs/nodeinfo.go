// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 j9brown

package zwavejs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/j9brown/node-zwave-pe653/pkg/pe653"
)

const (
	manufacturerID          = pe653.ManufacturerID
	productType             = pe653.ProductType
	commandClassProprietary = pe653.CommandClassProprietary

	methodSendAndReceive = "sendAndReceiveData"
)

// nodeInfoFn is the driver snippet that reads a node's identity from the
// gateway's view of the network.
const nodeInfoFn = `const node = driver.controller.nodes.get(%d);
return {
  manufacturerId: node.manufacturerId,
  productType: node.productType,
  productId: node.productId,
  firmwareVersion: node.firmwareVersion,
};`

// NodeInfo is the identity of one node as reported by the gateway.
type NodeInfo struct {
	ManufacturerID  uint16 `json:"manufacturerId"`
	ProductType     uint16 `json:"productType"`
	ProductID       uint16 `json:"productId"`
	FirmwareVersion string `json:"firmwareVersion"`
}

// ProductCode maps the node to its firmware archive product code, or
// returns UnsupportedNodeError when the node is not part of the family.
func (n *NodeInfo) ProductCode() (string, error) {
	if n.ManufacturerID != manufacturerID || n.ProductType != productType {
		return "", &UnsupportedNodeError{Reason: fmt.Sprintf(
			"node reports manufacturer 0x%04X product type 0x%04X, not a PE653/PE953 family device",
			n.ManufacturerID, n.ProductType)}
	}
	code := pe653.ProductCode(n.ProductID)
	if code == "" {
		return "", &UnsupportedNodeError{Reason: fmt.Sprintf(
			"unknown product id 0x%04X", n.ProductID)}
	}
	return code, nil
}

func nodeInfoSnippet(nodeID int) string {
	return fmt.Sprintf(nodeInfoFn, nodeID)
}

// NodeInfo fetches the identity of a node via a driver function call.
func (c *Client) NodeInfo(ctx context.Context, nodeID int) (*NodeInfo, error) {
	result, err := c.DriverFunction(ctx, nodeInfoSnippet(nodeID))
	if err != nil {
		return nil, err
	}
	var info NodeInfo
	if err := json.Unmarshal(result, &info); err != nil {
		return nil, &RpcError{Kind: kindDriverFunction, Reason: "malformed node info: " + err.Error()}
	}
	return &info, nil
}
