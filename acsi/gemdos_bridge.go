// Copyright 2026 The zeST Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package acsi

import (
	"encoding/binary"
	"log"
	"sync"
	"time"

	"github.com/zest-project/zest/gemdos"
)

// RendezvousTimeout is the bound spec §4.5 places on every T-GEMDOS
// rendezvous: if the stub doesn't answer an OP_ACTION, or the dispatch
// goroutine doesn't produce its next action, within this budget, the call
// is abandoned and the guest falls back to ROM.
const RendezvousTimeout = 500 * time.Millisecond

// Bridge turns the synchronous, one-shot Target.GEMDOS callback into the
// multi-command action-mode conversation the stub actually speaks (spec
// §4.5/§6.3): OP_GEMDOS starts a dispatch, the host answers with a stream of
// OP_ACTION replies (RDMEM/WRMEM/GEMDOS/MODSTACK/RETURN), and the guest
// answers each with an OP_RESULT carrying whatever that action needed
// (the bytes read out of guest RAM for RDMEM, an ack for WRMEM/MODSTACK).
//
// gemdos.Dispatcher.Dispatch wants its GuestMemory answered synchronously,
// so each conversation runs Dispatch on its own goroutine and blocks it on
// a pair of channels that HandleCommand drives from the ACSI command
// stream; there is never more than one conversation live per target, since
// the bus itself is strictly request/reply.
type Bridge struct {
	Dispatcher *gemdos.Dispatcher
	Logger     *log.Logger

	mu   sync.Mutex
	conv *conversation
}

type conversation struct {
	next    chan gemdos.Action // next action for HandleCommand to relay to the guest
	result  chan []byte        // guest's answer to the action currently in flight
	actions []gemdos.Action    // the final action list once Dispatch has returned
	done    chan struct{}
}

// decodeCall decodes the raw GEMDOS trap envelope the stub sends with
// OP_GEMDOS: a big-endian uint16 opcode, the uint32 DTA address, then one
// big-endian uint32 argument per remaining whole 4-byte word. An envelope
// shorter than 10 bytes decodes to the zero Call.
func decodeCall(cmd []byte) gemdos.Call {
	if len(cmd) < 10 {
		return gemdos.Call{}
	}
	c := gemdos.Call{
		Opcode: binary.BigEndian.Uint16(cmd[0:2]),
		DTA:    binary.BigEndian.Uint32(cmd[2:6]),
	}
	n := (len(cmd) - 6) / 4
	c.Args = make([]uint32, n)
	for i := 0; i < n; i++ {
		c.Args[i] = binary.BigEndian.Uint32(cmd[6+i*4:])
	}
	return c
}

// encodeAction serializes one gemdos.Action into the wire form the stub
// expects for an OP_ACTION reply: a one-byte code, a big-endian address,
// a big-endian length/value, then any payload.
func encodeAction(a gemdos.Action) []byte {
	out := make([]byte, 9)
	out[0] = byte(a.Code)
	binary.BigEndian.PutUint32(out[1:5], a.Addr)
	switch a.Code {
	case gemdos.ActionReturn, gemdos.ActionGEMDOS, gemdos.ActionMODSTACK:
		binary.BigEndian.PutUint32(out[5:9], uint32(a.Value))
	default:
		binary.BigEndian.PutUint32(out[5:9], uint32(len(a.Data)))
	}
	return append(out, a.Data...)
}

// HandleCommand is wired as a Target's GEMDOS callback. cmd[0] carries the
// sub-opcode (gemdos.OpGEMDOS or OpResult); the remainder is the trap
// envelope for OpGEMDOS or the guest's answer for OpResult. Any other
// sub-opcode, OpAction included, is answered with ERROR.
func (b *Bridge) HandleCommand(cmd []byte) (reply []byte, status byte) {
	if len(cmd) < 1 {
		return nil, statusError
	}
	switch cmd[0] {
	case gemdos.OpGEMDOS:
		return b.start(decodeCall(cmd[1:]))
	case gemdos.OpResult:
		return b.deliverResult(cmd[1:])
	default:
		return nil, statusError
	}
}

// memProxy implements gemdos.GuestMemory by round-tripping RDMEM/WRMEM
// actions through the conversation's channels.
type memProxy struct{ c *conversation }

func (m *memProxy) ReadBytes(addr uint32, n int) ([]byte, error) {
	m.c.next <- gemdos.Action{Code: gemdos.ActionRDMEM, Addr: addr, Len: n}
	return <-m.c.result, nil
}

func (m *memProxy) ReadU32(addr uint32) (uint32, error) {
	b, err := m.ReadBytes(addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (m *memProxy) ReadU16(addr uint32) (uint16, error) {
	b, err := m.ReadBytes(addr, 2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (m *memProxy) WriteBytes(addr uint32, data []byte) error {
	m.c.next <- gemdos.Action{Code: gemdos.ActionWRMEM, Addr: addr, Data: data}
	<-m.c.result
	return nil
}

func (b *Bridge) start(call gemdos.Call) (reply []byte, status byte) {
	b.mu.Lock()
	conv := &conversation{
		next:   make(chan gemdos.Action),
		result: make(chan []byte),
		done:   make(chan struct{}),
	}
	b.conv = conv
	b.mu.Unlock()

	go func() {
		actions := b.Dispatcher.Dispatch(call, &memProxy{c: conv})
		conv.actions = actions
		close(conv.done)
	}()

	return b.nextOrFinal(conv)
}

// nextOrFinal waits for either the dispatch goroutine to request its next
// guest-memory round trip (relayed as an OP_ACTION reply) or to finish
// (the final action list, relayed as the closing OP_ACTION replies back to
// back - the stub drains them one OP_RESULT at a time same as any other
// action, its own RDMEM/WRMEM payloads aside).
func (b *Bridge) nextOrFinal(conv *conversation) ([]byte, byte) {
	select {
	case a := <-conv.next:
		return encodeAction(a), statusOK
	case <-conv.done:
		return b.postFinal(conv)
	case <-time.After(RendezvousTimeout):
		return b.abandon(conv)
	}
}

// abandon is spec §7's Timeout condition: the dispatch goroutine's next
// action didn't arrive within RendezvousTimeout, so the call is logged and
// abandoned. The dispatch goroutine is left running (it may still be
// blocked on guest memory it will never get, or may finish later and write
// into conv.actions/conv.done harmlessly) but the bridge stops waiting on
// it and tells the stub to fall back to ROM.
func (b *Bridge) abandon(conv *conversation) ([]byte, byte) {
	b.mu.Lock()
	if b.conv == conv {
		b.conv = nil
	}
	b.mu.Unlock()
	if b.Logger != nil {
		b.Logger.Printf("acsi: gemdos: rendezvous timeout, abandoning call")
	}
	return encodeAction(gemdos.Action{Code: gemdos.ActionFallback}), statusOK
}

func (b *Bridge) postFinal(conv *conversation) ([]byte, byte) {
	if len(conv.actions) == 0 {
		b.mu.Lock()
		b.conv = nil
		b.mu.Unlock()
		return encodeAction(gemdos.Action{Code: gemdos.ActionFallback}), statusOK
	}
	a := conv.actions[0]
	conv.actions = conv.actions[1:]
	if len(conv.actions) == 0 {
		b.mu.Lock()
		b.conv = nil
		b.mu.Unlock()
	}
	return encodeAction(a), statusOK
}

// deliverResult feeds the guest's answer for the in-flight action back to
// whichever side is waiting on it: the blocked memProxy call if a dispatch
// is still running, or simply the next queued final action otherwise.
func (b *Bridge) deliverResult(payload []byte) ([]byte, byte) {
	b.mu.Lock()
	conv := b.conv
	b.mu.Unlock()
	if conv == nil {
		return encodeAction(gemdos.Action{Code: gemdos.ActionFallback}), statusOK
	}

	select {
	case <-conv.done:
		return b.postFinal(conv)
	default:
	}

	select {
	case conv.result <- payload:
		return b.nextOrFinal(conv)
	case <-conv.done:
		return b.postFinal(conv)
	case <-time.After(RendezvousTimeout):
		return b.abandon(conv)
	}
}
