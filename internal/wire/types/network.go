package types

import (
	"fmt"
	"net"
)

// inetFamilyIPv4/IPv6 are the family byte values PostgreSQL uses on the
// wire, independent of Go's own address-family constants.
const (
	inetFamilyIPv4 = 2
	inetFamilyIPv6 = 3
)

// Inet wraps a net.IPNet for the INET/CIDR wire format: {family, prefix,
// is_cidr, addr_len, addr_bytes}. is_cidr is observed always 0 on the
// wire regardless of whether the value is INET or CIDR, so it is
// encoded as 0 unconditionally rather than inferred from the
// net.IPNet's mask shape.
type Inet struct {
	Net     net.IPNet
	IsCidr  bool
	Valid   bool
}

func (Inet) AcceptsOID(oid uint32) bool { return oid == OIDInet || oid == OIDCidr }

func (n *Inet) FromSqlBinary(oid uint32, raw []byte) error {
	if len(raw) < 4 {
		return fmt.Errorf("inet: payload too short (%d bytes)", len(raw))
	}
	family := raw[0]
	prefix := raw[1]
	isCidr := raw[2]
	addrLen := int(raw[3])
	if len(raw) != 4+addrLen {
		return fmt.Errorf("inet: addr_len %d does not match payload size %d", addrLen, len(raw)-4)
	}

	var bits int
	switch family {
	case inetFamilyIPv4:
		bits = 32
	case inetFamilyIPv6:
		bits = 128
	default:
		return fmt.Errorf("inet: unrecognized family byte %d", family)
	}

	ip := make(net.IP, addrLen)
	copy(ip, raw[4:4+addrLen])

	n.Net = net.IPNet{IP: ip, Mask: net.CIDRMask(int(prefix), bits)}
	n.IsCidr = isCidr != 0
	n.Valid = true
	return nil
}

func (n Inet) ToSqlBinary() ([]byte, error) {
	ip4 := n.Net.IP.To4()
	var family byte
	var addr []byte
	if ip4 != nil {
		family = inetFamilyIPv4
		addr = ip4
	} else {
		family = inetFamilyIPv6
		addr = n.Net.IP.To16()
		if addr == nil {
			return nil, fmt.Errorf("inet: invalid IP address")
		}
	}
	prefix, _ := n.Net.Mask.Size()
	buf := make([]byte, 4+len(addr))
	buf[0] = family
	buf[1] = byte(prefix)
	buf[2] = 0 // always 0, matches observed wire behavior
	buf[3] = byte(len(addr))
	copy(buf[4:], addr)
	return buf, nil
}
