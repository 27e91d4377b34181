// internal/transport/udp/frame.go
package udp

import (
	"encoding/binary"
	"fmt"

	"github.com/tamzrod/regbridge/internal/fault"
)

// Native datagram framing.
//
// Request:
//   header(7) = packet id(2 BE) + 0x00 + 0x00 + data length(2 BE) + checksum(1)
//   body(5)   = function code(1) + register address(2 BE) + value/quantity(2 BE)
// Checksum is the low byte of the sum of the first six header bytes.
//
// Response:
//   function code at byte 7. A function code with bit 0x08 set is a NAK:
//   the device's remote-control feature is switched off.
//   A read reply is always the fixed-length full register map, whatever
//   span the request asked for: 64 BE words starting at byte 9.
const (
	headerLen = 7
	bodyLen   = 5

	regCount    = 64
	readRespLen = payloadOffset + 2*regCount // 137

	fcRead  = 0x03
	fcWrite = 0x06

	nakBit = 0x08

	posFunctionCode = 7
	payloadOffset   = 9

	bufSize = 1024
)

func buildFrame(pid uint16, fc byte, addr, arg uint16) []byte {
	p := make([]byte, headerLen+bodyLen)

	binary.BigEndian.PutUint16(p[0:2], pid)
	// p[2], p[3] are always zero
	binary.BigEndian.PutUint16(p[4:6], uint16(bodyLen+1)) // data length

	var sum byte
	for _, b := range p[0:6] {
		sum += b
	}
	p[6] = sum

	p[7] = fc
	binary.BigEndian.PutUint16(p[8:10], addr)
	binary.BigEndian.PutUint16(p[10:12], arg)
	return p
}

func buildRead(pid, start, quantity uint16) []byte {
	return buildFrame(pid, fcRead, start, quantity)
}

func buildWrite(pid, addr, value uint16) []byte {
	return buildFrame(pid, fcWrite, addr, value)
}

// parseRead unpacks a read response into the full register map.
func parseRead(resp []byte) ([]uint16, error) {
	if err := checkFC(resp, fcRead); err != nil {
		return nil, err
	}

	if len(resp) != readRespLen {
		return nil, fmt.Errorf("udp: response is %d bytes, want %d: %w", len(resp), readRespLen, fault.ErrBadFrame)
	}

	regs := make([]uint16, regCount)
	for i := range regs {
		off := payloadOffset + 2*i
		regs[i] = binary.BigEndian.Uint16(resp[off : off+2])
	}
	return regs, nil
}

// parseWriteAck checks a write response for the NAK bit and the echoed
// function code. The device echoes the request on success.
func parseWriteAck(resp []byte) error {
	return checkFC(resp, fcWrite)
}

func checkFC(resp []byte, fc byte) error {
	if len(resp) <= posFunctionCode {
		return fmt.Errorf("udp: response too short (%d bytes): %w", len(resp), fault.ErrBadFrame)
	}
	got := resp[posFunctionCode]
	if got&nakBit != 0 {
		return fmt.Errorf("udp: device NAK (fc=0x%02x): %w", got, fault.ErrFeatureDisabled)
	}
	if got != fc {
		return fmt.Errorf("udp: function code mismatch: got=0x%02x want=0x%02x: %w", got, fc, fault.ErrBadFrame)
	}
	return nil
}
