// Package catalog describes the IP Fabric tables ipfa knows how to query.
//
// Each table is plain data: the API endpoint, the columns requested when the
// caller does not name any, and a description shown to users and LLMs.
// Adding a table means adding an entry here; there are no per-table types.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownTable is returned by Lookup for names not in the catalog.
var ErrUnknownTable = errors.New("unknown table")

// Table describes one queryable IP Fabric table.
type Table struct {
	Name           string   `json:"name"`     // dotted path, e.g. technology.routing.routes
	Endpoint       string   `json:"endpoint"` // path below /tables
	Description    string   `json:"description"`
	DefaultColumns []string `json:"default_columns"`
	Example        string   `json:"example_filter,omitempty"`
}

var tables = []Table{
	{
		Name:        "inventory.devices",
		Endpoint:    "inventory/devices",
		Description: "Network devices discovered in the snapshot",
		DefaultColumns: []string{
			"id", "hostname", "siteName", "vendor", "family", "platform", "model",
			"version", "devType", "loginIp", "sn", "uptime", "memoryUtilization",
		},
		Example: `{"vendor": ["eq", "cisco"]}`,
	},
	{
		Name:        "inventory.interfaces",
		Endpoint:    "inventory/interfaces",
		Description: "Physical and logical interfaces with L1/L2 state",
		DefaultColumns: []string{
			"id", "hostname", "intName", "nameOriginal", "siteName", "l1", "l2",
			"reason", "dscr", "mac", "duplex", "speed", "media", "mtu", "primaryIp",
		},
		Example: `{"l1": ["eq", "down"]}`,
	},
	{
		Name:           "inventory.sites",
		Endpoint:       "inventory/sites",
		Description:    "Sites with device, user and network counts",
		DefaultColumns: []string{"id", "siteName", "devicesCount", "usersCount", "stpDCount", "switchesCount", "routersCount", "networksCount"},
		Example:        `{"siteName": ["like", "london"]}`,
	},
	{
		Name:           "inventory.vendors",
		Endpoint:       "inventory/summary/vendors",
		Description:    "Device count per vendor",
		DefaultColumns: []string{"id", "vendor", "count"},
	},
	{
		Name:           "inventory.platforms",
		Endpoint:       "inventory/summary/platforms",
		Description:    "Device count per platform",
		DefaultColumns: []string{"id", "vendor", "platform", "count"},
	},
	{
		Name:           "inventory.part_numbers",
		Endpoint:       "inventory/pn",
		Description:    "Hardware modules and part numbers",
		DefaultColumns: []string{"id", "hostname", "siteName", "deviceSn", "name", "dscr", "pid", "sn", "vendor", "platform"},
	},
	{
		Name:           "inventory.hosts",
		Endpoint:       "addressing/hosts",
		Description:    "End hosts discovered through ARP, MAC and DHCP tables",
		DefaultColumns: []string{"id", "ip", "mac", "dnsName", "siteName", "vlan", "vrf", "edges", "type"},
		Example:        `{"ip": ["reg", "^10\\.1\\."]}`,
	},
	{
		Name:        "technology.routing.routes",
		Endpoint:    "networks/routes",
		Description: "IPv4 routing table entries per device and VRF",
		DefaultColumns: []string{
			"id", "hostname", "siteName", "vrf", "network", "prefix", "protocol",
			"nexthop", "nhCount", "nhLowestMetric", "nhLowestAd",
		},
		Example: `{"protocol": ["eq", "ospf"]}`,
	},
	{
		Name:        "technology.routing.bgp_neighbors",
		Endpoint:    "routing/protocols/bgp/neighbors",
		Description: "BGP sessions with state and prefix counters",
		DefaultColumns: []string{
			"id", "hostname", "siteName", "vrf", "localAddress", "localAs",
			"neiAddress", "neiAs", "neiHostname", "state", "totalReceivedPrefixes", "upDuration",
		},
		Example: `{"state": ["eq", "established"]}`,
	},
	{
		Name:        "technology.routing.ospf_neighbors",
		Endpoint:    "routing/protocols/ospf/neighbors",
		Description: "OSPF adjacencies",
		DefaultColumns: []string{
			"id", "hostname", "siteName", "vrf", "area", "intName", "neiRouterId",
			"neiIp", "neiName", "neiIntName", "state", "priority",
		},
	},
	{
		Name:           "technology.vlans.device_detail",
		Endpoint:       "vlan/device",
		Description:    "VLANs configured on each device",
		DefaultColumns: []string{"id", "hostname", "siteName", "vlanId", "vlanName", "status", "stdStatus"},
		Example:        `{"vlanId": ["eq", "100"]}`,
	},
	{
		Name:           "technology.vlans.site_summary",
		Endpoint:       "vlan/site-summary",
		Description:    "VLANs per site with device and interface counts",
		DefaultColumns: []string{"id", "siteName", "vlanId", "vlanName", "devCount", "dscr"},
	},
	{
		Name:        "technology.neighbors.neighbors_all",
		Endpoint:    "neighbors/all",
		Description: "All discovered L2/L3 neighbor relationships (CDP, LLDP, routing)",
		DefaultColumns: []string{
			"id", "source", "localHost", "localInt", "localSiteName",
			"remoteHost", "remoteInt", "remoteSiteName", "protocol",
		},
	},
	{
		Name:           "technology.addressing.arp_table",
		Endpoint:       "addressing/arp",
		Description:    "ARP entries per device",
		DefaultColumns: []string{"id", "hostname", "siteName", "intName", "ip", "mac", "vlanId", "vrf", "proxy"},
		Example:        `{"ip": ["eq", "10.0.0.1"]}`,
	},
	{
		Name:           "technology.addressing.mac_table",
		Endpoint:       "addressing/mac",
		Description:    "MAC address table entries per device",
		DefaultColumns: []string{"id", "hostname", "siteName", "intName", "mac", "vlan", "type", "edge", "user"},
		Example:        `{"mac": ["like", "aabb"]}`,
	},
	{
		Name:           "technology.addressing.managed_ip_ipv4",
		Endpoint:       "addressing/managed-devs",
		Description:    "IPv4 addresses configured on managed device interfaces",
		DefaultColumns: []string{"id", "hostname", "siteName", "intName", "ip", "net", "vlanId", "vrf", "type", "mac", "stateL1", "stateL2"},
	},
}

var byName = func() map[string]Table {
	m := make(map[string]Table, len(tables))
	for _, t := range tables {
		m[t.Name] = t
	}
	return m
}()

// Lookup returns the table registered under name. Surrounding whitespace
// and a leading "ipf." (as written in SDK code) are ignored.
func Lookup(name string) (Table, error) {
	n := strings.TrimPrefix(strings.TrimSpace(name), "ipf.")
	if t, ok := byName[n]; ok {
		return t, nil
	}
	return Table{}, fmt.Errorf("%w: %q - verify the table path; valid tables: %s",
		ErrUnknownTable, name, strings.Join(Names(), ", "))
}

// Names returns all table names, sorted.
func Names() []string {
	names := make([]string, 0, len(tables))
	for _, t := range tables {
		names = append(names, t.Name)
	}
	sort.Strings(names)
	return names
}

// All returns every table, sorted by name.
func All() []Table {
	out := make([]Table, len(tables))
	copy(out, tables)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Columns returns the requested columns, or the table defaults when none
// are given.
func (t Table) Columns(requested []string) []string {
	if len(requested) > 0 {
		return requested
	}
	return t.DefaultColumns
}
