// Copyright (C) 2019-2025, Serval Project Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package zmqdatagram is a concrete slot.DatagramSender built directly
// on github.com/luxfi/zmq/v4/networking: one real overlay implementation
// of the single callback the core uses to emit MDP request datagrams
// (spec.md §1, §4.D). Framing beyond the MDP wire body itself, routing,
// and peer discovery remain the overlay transport's job, not the
// core's.
package zmqdatagram

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/luxfi/zmq/v4/networking"

	"github.com/servaldna/rhizome-fetch/transport/datagram"
	"github.com/servaldna/rhizome-fetch/types"
)

const (
	msgTypePayloadBlockRequest  = "rhizome_payload_block_request"
	msgTypeManifestBlockRequest = "rhizome_manifest_block_request"
	msgTypeBlock                = "rhizome_block"
)

// Transport is the fetch engine's MDP overlay: request datagrams out via
// Send*BlockRequest, block arrivals in via the registered
// "rhizome_block" handler.
type Transport struct {
	*networking.Transport

	// OnBlock is invoked for every parsed inbound block; wired by the
	// caller to engine.ReceivedContent. A nil OnBlock silently drops
	// arrivals, which is only useful in tests.
	OnBlock func(datagram.IncomingBlock)
}

// NewTransport builds a Transport over the shared networking package
// and registers its inbound block handler.
func NewTransport(ctx context.Context, nodeID string, basePort int) *Transport {
	cfg := networking.DefaultConfig(nodeID, basePort)
	t := &Transport{Transport: networking.New(ctx, cfg)}
	t.RegisterHandler(msgTypeBlock, t.handleBlock)
	return t
}

func (t *Transport) handleBlock(msg *networking.Message) {
	if t.OnBlock == nil {
		return
	}
	var raw []byte
	if err := json.Unmarshal(msg.Data, &raw); err != nil {
		return
	}
	blk, err := datagram.ParseIncomingBlock(raw)
	if err != nil {
		return
	}
	t.OnBlock(blk)
}

// SendPayloadBlockRequest implements slot.DatagramSender (spec.md §6
// payload block request datagram).
func (t *Transport) SendPayloadBlockRequest(peer types.PeerID, body []byte) error {
	return t.send(peer, msgTypePayloadBlockRequest, body)
}

// SendManifestBlockRequest implements slot.DatagramSender (spec.md §6
// manifest block request datagram).
func (t *Transport) SendManifestBlockRequest(peer types.PeerID, body []byte) error {
	return t.send(peer, msgTypeManifestBlockRequest, body)
}

func (t *Transport) send(peer types.PeerID, msgType string, body []byte) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("zmqdatagram: marshal %s body: %w", msgType, err)
	}
	msg := &networking.Message{
		Type:      msgType,
		From:      t.GetNodeID(),
		To:        peer.SID.String(),
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	return t.Send(peer.SID.String(), msg)
}
