// device_info.go
// Dieses Modul enthaelt die DeviceInfo-Struktur und Sortierung der Geraete
// fuer die Verzeichnis-Ausgabe.

package ml

import (
	"sort"
	"strings"

	"github.com/riskgpu/riskgpu/internal/orderedmap"
)

type DeviceInfo struct {
	// Framework is the registered name of the framework (e.g. "OpenCL", "Host")
	Framework string `json:"framework"`

	// Platform groups devices of one driver/vendor inside a framework
	Platform string `json:"platform"`

	// Name is the name of the device as labeled by the driver
	Name string `json:"name"`

	// Index is the position of the device within its platform
	Index int `json:"index"`

	// DType is the storage type of float buffers on this device
	DType DType `json:"dtype"`

	// Properties are driver-reported key/value pairs in query order
	// (device_name, driver_version, device_version, extensions, ...)
	Properties *orderedmap.Map[string, string] `json:"-"`
}

// ID gibt den vollstaendigen Geraetenamen "<Framework>/<Platform>/<Name>" zurueck.
func (d DeviceInfo) ID() string {
	return d.Framework + "/" + d.Platform + "/" + d.Name
}

// Pairs gibt die Eigenschaften als Schluessel/Wert-Paare in Abfragereihenfolge zurueck.
func (d DeviceInfo) Pairs() [][2]string {
	pairs := make([][2]string, 0, d.Properties.Len())
	d.Properties.Range(func(k, v string) bool {
		pairs = append(pairs, [2]string{k, v})
		return true
	})
	return pairs
}

// Property liefert einen einzelnen Eintrag, "" wenn er fehlt.
func (d DeviceInfo) Property(key string) string {
	if d.Properties == nil {
		return ""
	}
	v, _ := d.Properties.Get(key)
	return v
}

// SetProperty legt Properties bei Bedarf an.
func (d *DeviceInfo) SetProperty(key, value string) {
	if d.Properties == nil {
		d.Properties = orderedmap.New[string, string]()
	}
	d.Properties.Set(key, strings.TrimSpace(value))
}

// Sort by ID, the order used for device listings.
type ByID []DeviceInfo

func (a ByID) Len() int           { return len(a) }
func (a ByID) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a ByID) Less(i, j int) bool { return a[i].ID() < a[j].ID() }

// ByFramework gruppiert Geraete nach Framework, in der Reihenfolge des ersten Auftretens.
func ByFramework(l []DeviceInfo) [][]DeviceInfo {
	resp := [][]DeviceInfo{}
	names := []string{}
	for _, info := range l {
		found := false
		for i, name := range names {
			if name == info.Framework {
				resp[i] = append(resp[i], info)
				found = true
				break
			}
		}
		if !found {
			names = append(names, info.Framework)
			resp = append(resp, []DeviceInfo{info})
		}
	}
	return resp
}

// SortedIDs gibt die IDs aller Geraete sortiert zurueck.
func SortedIDs(l []DeviceInfo) []string {
	sorted := append([]DeviceInfo(nil), l...)
	sort.Sort(ByID(sorted))
	ids := make([]string, len(sorted))
	for i, d := range sorted {
		ids[i] = d.ID()
	}
	return ids
}
