//go:build linux

package session

import (
	"fmt"

	"github.com/google/nftables"
	"github.com/google/nftables/binaryutil"
	"github.com/google/nftables/expr"
	"golang.org/x/sys/unix"
)

// HotspotFirewall scopes the hotspot AP's 10.0.0.0/24 subnet (spec.md §6.2)
// to exactly what a joined peer needs: DHCP (67/68) and the active
// transport's own TCP/discovery UDP ports, dropping everything else
// originating from the AP interface.
type HotspotFirewall struct {
	iface    string
	tcpPort  uint16
	discPort uint16
	conn     *nftables.Conn
	table    *nftables.Table
}

const (
	hotspotTableName  = "linkrt_hotspot"
	hotspotInputChain = "input"
	dhcpServerPort    = 67
	dhcpClientPort    = 68
)

// NewHotspotFirewall scopes rules to iface (the AP's wireless interface) and
// the given transport's TCP and discovery UDP ports.
func NewHotspotFirewall(iface string, tcpPort, discoveryPort int) *HotspotFirewall {
	return &HotspotFirewall{
		iface:    iface,
		tcpPort:  uint16(tcpPort),
		discPort: uint16(discoveryPort),
	}
}

// Setup installs the nftables table/chain/rules. Idempotent with Cleanup:
// call Cleanup first if a stale table from a previous run might remain.
func (f *HotspotFirewall) Setup() error {
	conn, err := nftables.New()
	if err != nil {
		return fmt.Errorf("open nftables connection: %w", err)
	}
	f.conn = conn

	f.table = conn.AddTable(&nftables.Table{
		Family: nftables.TableFamilyIPv4,
		Name:   hotspotTableName + "_" + f.iface,
	})

	inputChain := conn.AddChain(&nftables.Chain{
		Name:     hotspotInputChain,
		Table:    f.table,
		Type:     nftables.ChainTypeFilter,
		Hooknum:  nftables.ChainHookInput,
		Priority: nftables.ChainPriorityFilter,
	})

	conn.AddRule(&nftables.Rule{
		Table: f.table,
		Chain: inputChain,
		Exprs: f.buildUDPPortAcceptRule(dhcpServerPort),
	})
	conn.AddRule(&nftables.Rule{
		Table: f.table,
		Chain: inputChain,
		Exprs: f.buildUDPPortAcceptRule(dhcpClientPort),
	})

	if f.discPort > 0 {
		conn.AddRule(&nftables.Rule{
			Table: f.table,
			Chain: inputChain,
			Exprs: f.buildUDPPortAcceptRule(f.discPort),
		})
	}
	if f.tcpPort > 0 {
		conn.AddRule(&nftables.Rule{
			Table: f.table,
			Chain: inputChain,
			Exprs: f.buildTCPPortAcceptRule(f.tcpPort),
		})
	}

	// Everything else arriving on the AP interface is dropped: a hotspot
	// peer gets DHCP and the one transport it joined for, nothing else.
	conn.AddRule(&nftables.Rule{
		Table: f.table,
		Chain: inputChain,
		Exprs: f.buildDropRule(),
	})

	if err := conn.Flush(); err != nil {
		return fmt.Errorf("apply hotspot firewall rules: %w", err)
	}
	return nil
}

func (f *HotspotFirewall) buildUDPPortAcceptRule(port uint16) []expr.Any {
	return []expr.Any{
		&expr.Meta{Key: expr.MetaKeyIIFNAME, Register: 1},
		&expr.Cmp{Op: expr.CmpOpEq, Register: 1, Data: ifname(f.iface)},
		&expr.Meta{Key: expr.MetaKeyL4PROTO, Register: 1},
		&expr.Cmp{Op: expr.CmpOpEq, Register: 1, Data: []byte{unix.IPPROTO_UDP}},
		&expr.Payload{DestRegister: 1, Base: expr.PayloadBaseTransportHeader, Offset: 2, Len: 2},
		&expr.Cmp{Op: expr.CmpOpEq, Register: 1, Data: binaryutil.BigEndian.PutUint16(port)},
		&expr.Verdict{Kind: expr.VerdictAccept},
	}
}

func (f *HotspotFirewall) buildTCPPortAcceptRule(port uint16) []expr.Any {
	return []expr.Any{
		&expr.Meta{Key: expr.MetaKeyIIFNAME, Register: 1},
		&expr.Cmp{Op: expr.CmpOpEq, Register: 1, Data: ifname(f.iface)},
		&expr.Meta{Key: expr.MetaKeyL4PROTO, Register: 1},
		&expr.Cmp{Op: expr.CmpOpEq, Register: 1, Data: []byte{unix.IPPROTO_TCP}},
		&expr.Payload{DestRegister: 1, Base: expr.PayloadBaseTransportHeader, Offset: 2, Len: 2},
		&expr.Cmp{Op: expr.CmpOpEq, Register: 1, Data: binaryutil.BigEndian.PutUint16(port)},
		&expr.Verdict{Kind: expr.VerdictAccept},
	}
}

func (f *HotspotFirewall) buildDropRule() []expr.Any {
	return []expr.Any{
		&expr.Meta{Key: expr.MetaKeyIIFNAME, Register: 1},
		&expr.Cmp{Op: expr.CmpOpEq, Register: 1, Data: ifname(f.iface)},
		&expr.Verdict{Kind: expr.VerdictDrop},
	}
}

// Cleanup removes the table, tolerating a connection that Setup never
// opened (e.g. Cleanup called after a failed Setup).
func (f *HotspotFirewall) Cleanup() error {
	if f.conn == nil {
		conn, err := nftables.New()
		if err != nil {
			return err
		}
		f.conn = conn
	}

	tables, err := f.conn.ListTables()
	if err != nil {
		return err
	}

	name := hotspotTableName + "_" + f.iface
	for _, t := range tables {
		if t.Name == name && t.Family == nftables.TableFamilyIPv4 {
			f.conn.DelTable(t)
			break
		}
	}
	return f.conn.Flush()
}

func ifname(n string) []byte {
	b := make([]byte, 16)
	copy(b, n)
	return b
}
