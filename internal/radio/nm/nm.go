// Package nm drives a WiFi interface through NetworkManager's D-Bus API.
package nm

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muurk/wifiprov/internal/logging"
	"github.com/muurk/wifiprov/internal/radio"
	"github.com/muurk/wifiprov/internal/urls"
)

const (
	busName       = "org.freedesktop.NetworkManager"
	rootPath      = dbus.ObjectPath("/org/freedesktop/NetworkManager")
	ifaceNM       = "org.freedesktop.NetworkManager"
	ifaceDevice   = "org.freedesktop.NetworkManager.Device"
	ifaceWireless = "org.freedesktop.NetworkManager.Device.Wireless"
	ifaceAP       = "org.freedesktop.NetworkManager.AccessPoint"
	ifaceIP4      = "org.freedesktop.NetworkManager.IP4Config"
	ifaceSettings = "org.freedesktop.NetworkManager.Settings.Connection"

	deviceStateActivated = 100

	scanSettle = 3 * time.Second
)

// APAddress is the address the access point is configured with.
var APAddress = net.ParseIP(urls.PortalAddress).To4()

// Radio is a NetworkManager-backed radio bound to one wireless interface.
type Radio struct {
	mu     sync.Mutex
	conn   bus
	iface  string
	device dbus.ObjectPath

	station dbus.ObjectPath
	ap      dbus.ObjectPath
	apConn  dbus.ObjectPath
}

// bus is the part of *dbus.Conn the radio uses.
type bus interface {
	Object(dest string, path dbus.ObjectPath) dbus.BusObject
	Close() error
}

// Open connects to the system bus and resolves iface to a NetworkManager device.
func Open(iface string) (*Radio, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system bus: %w", err)
	}
	return open(conn, iface)
}

// open takes ownership of conn and closes it if iface cannot be resolved.
func open(conn bus, iface string) (*Radio, error) {
	var device dbus.ObjectPath
	if err := conn.Object(busName, rootPath).Call(ifaceNM+".GetDeviceByIpIface", 0, iface).Store(&device); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to find NetworkManager device %s: %w", iface, err)
	}

	logging.Debug("NetworkManager device resolved", zap.String("interface", iface), zap.String("path", string(device)))
	return &Radio{conn: conn, iface: iface, device: device}, nil
}

func (r *Radio) deviceObj() dbus.BusObject {
	return r.conn.Object(busName, r.device)
}

func (r *Radio) addAndActivate(settings map[string]map[string]dbus.Variant) (dbus.ObjectPath, dbus.ObjectPath, error) {
	var connPath, active dbus.ObjectPath
	err := r.conn.Object(busName, rootPath).
		Call(ifaceNM+".AddAndActivateConnection", 0, settings, r.device, dbus.ObjectPath("/")).
		Store(&connPath, &active)
	return connPath, active, err
}

func (r *Radio) deleteConnection(path dbus.ObjectPath) {
	if path == "" {
		return
	}
	if call := r.conn.Object(busName, path).Call(ifaceSettings+".Delete", 0); call.Err != nil {
		logging.Debug("Failed to delete connection profile", zap.String("path", string(path)), zap.Error(call.Err))
	}
}

func connectionSettings(id, ssid, mode string) map[string]map[string]dbus.Variant {
	return map[string]map[string]dbus.Variant{
		"connection": {
			"id":          dbus.MakeVariant(id),
			"uuid":        dbus.MakeVariant(uuid.NewString()),
			"type":        dbus.MakeVariant("802-11-wireless"),
			"autoconnect": dbus.MakeVariant(false),
		},
		"802-11-wireless": {
			"ssid": dbus.MakeVariant([]byte(ssid)),
			"mode": dbus.MakeVariant(mode),
		},
	}
}

func withPSK(s map[string]map[string]dbus.Variant, password string) {
	if password == "" {
		return
	}
	s["802-11-wireless-security"] = map[string]dbus.Variant{
		"key-mgmt": dbus.MakeVariant("wpa-psk"),
		"psk":      dbus.MakeVariant(password),
	}
}

// Connect activates a station profile for ssid.
func (r *Radio) Connect(ssid, password string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.deleteConnection(r.station)
	r.station = ""

	settings := connectionSettings("wifiprov-station", ssid, "infrastructure")
	withPSK(settings, password)
	settings["ipv4"] = map[string]dbus.Variant{"method": dbus.MakeVariant("auto")}

	connPath, _, err := r.addAndActivate(settings)
	if err != nil {
		return fmt.Errorf("failed to activate station connection: %w", err)
	}
	r.station = connPath
	return nil
}

// Connected reports whether the device is activated.
func (r *Radio) Connected() bool {
	v, err := r.deviceObj().GetProperty(ifaceDevice + ".State")
	if err != nil {
		return false
	}
	st, ok := v.Value().(uint32)
	if !ok || st != deviceStateActivated {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ap == ""
}

// Disconnect deactivates the device and deletes the station profile.
func (r *Radio) Disconnect() error {
	call := r.deviceObj().Call(ifaceDevice+".Disconnect", 0)
	if call.Err != nil {
		logging.Debug("Device disconnect failed", zap.Error(call.Err))
	}
	return nil
}

// LocalIP returns the first IPv4 address of the device.
func (r *Radio) LocalIP() net.IP {
	v, err := r.deviceObj().GetProperty(ifaceDevice + ".Ip4Config")
	if err != nil {
		return nil
	}
	path, ok := v.Value().(dbus.ObjectPath)
	if !ok || path == "/" {
		return nil
	}
	data, err := r.conn.Object(busName, path).GetProperty(ifaceIP4 + ".AddressData")
	if err != nil {
		return nil
	}
	entries, ok := data.Value().([]map[string]dbus.Variant)
	if !ok || len(entries) == 0 {
		return nil
	}
	addr, ok := entries[0]["address"].Value().(string)
	if !ok {
		return nil
	}
	return net.ParseIP(addr)
}

// MAC returns the device hardware address.
func (r *Radio) MAC() net.HardwareAddr {
	ifc, err := net.InterfaceByName(r.iface)
	if err != nil {
		return nil
	}
	return ifc.HardwareAddr
}

// StartAP activates a shared-mode access point profile.
func (r *Radio) StartAP(name, password string) (net.IP, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	settings := connectionSettings("wifiprov-ap", name, "ap")
	withPSK(settings, password)
	settings["ipv4"] = map[string]dbus.Variant{
		"method": dbus.MakeVariant("shared"),
		"address-data": dbus.MakeVariant([]map[string]dbus.Variant{{
			"address": dbus.MakeVariant(APAddress.String()),
			"prefix":  dbus.MakeVariant(uint32(24)),
		}}),
	}

	connPath, active, err := r.addAndActivate(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to start access point: %w", err)
	}
	r.apConn = connPath
	r.ap = active
	return APAddress, nil
}

// StopAP deactivates and deletes the access point profile.
func (r *Radio) StopAP() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ap != "" {
		if call := r.conn.Object(busName, rootPath).Call(ifaceNM+".DeactivateConnection", 0, r.ap); call.Err != nil {
			logging.Warn("Failed to deactivate access point", zap.Error(call.Err))
		}
	}
	r.deleteConnection(r.apConn)
	r.ap, r.apConn = "", ""
	return nil
}

func (r *Radio) lastScan() int64 {
	v, err := r.deviceObj().GetProperty(ifaceWireless + ".LastScan")
	if err != nil {
		return 0
	}
	n, _ := v.Value().(int64)
	return n
}

// Scan requests a scan and returns the visible access points.
func (r *Radio) Scan(ctx context.Context) ([]radio.Network, error) {
	before := r.lastScan()
	if call := r.deviceObj().Call(ifaceWireless+".RequestScan", 0, map[string]dbus.Variant{}); call.Err != nil {
		logging.Debug("RequestScan refused, using cached results", zap.Error(call.Err))
	} else {
		r.waitForScan(ctx, before)
	}

	var aps []dbus.ObjectPath
	if err := r.deviceObj().Call(ifaceWireless+".GetAllAccessPoints", 0).Store(&aps); err != nil {
		return nil, fmt.Errorf("failed to list access points: %w", err)
	}

	networks := make([]radio.Network, 0, len(aps))
	for _, p := range aps {
		n, err := r.accessPoint(p)
		if err != nil {
			continue
		}
		networks = append(networks, n)
	}
	return radio.Dedupe(networks), nil
}

func (r *Radio) waitForScan(ctx context.Context, before int64) {
	ctx, cancel := context.WithTimeout(ctx, scanSettle)
	defer cancel()
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if r.lastScan() != before {
				return
			}
		}
	}
}

func (r *Radio) accessPoint(path dbus.ObjectPath) (radio.Network, error) {
	obj := r.conn.Object(busName, path)
	prop := func(name string) (any, error) {
		v, err := obj.GetProperty(ifaceAP + "." + name)
		if err != nil {
			return nil, err
		}
		return v.Value(), nil
	}

	ssid, err := prop("Ssid")
	if err != nil {
		return radio.Network{}, err
	}
	strength, err := prop("Strength")
	if err != nil {
		return radio.Network{}, err
	}

	// Privacy bit of Flags, or any WPA/RSN capability.
	secured := false
	for name, mask := range map[string]uint32{"Flags": 0x1, "WpaFlags": ^uint32(0), "RsnFlags": ^uint32(0)} {
		if v, err := prop(name); err == nil {
			if f, ok := v.(uint32); ok && f&mask != 0 {
				secured = true
			}
		}
	}

	raw, _ := ssid.([]byte)
	level, _ := strength.(byte)
	return radio.Network{SSID: string(raw), SignalStrength: int(level), Secured: secured}, nil
}

// Close drops any profiles created by this radio and closes the bus connection.
func (r *Radio) Close() error {
	_ = r.StopAP()
	r.mu.Lock()
	r.deleteConnection(r.station)
	r.station = ""
	r.mu.Unlock()
	return r.conn.Close()
}
