// Package devscan — поиск подключённых устройств по USB VID/PID.
package devscan

import (
	"fmt"
	"sort"
	"strings"

	"go.bug.st/serial/enumerator"
)

// Lister возвращает список портов; по умолчанию enumerator.GetDetailedPortsList
type Lister func() ([]*enumerator.PortDetails, error)

// Filter — критерий отбора; пустые поля не проверяются. Сравнение без учёта регистра.
type Filter struct {
	VID string
	PID string
}

// Device — найденное устройство
type Device struct {
	ID      string // u/<vid>:<pid>/<serial>
	Port    string
	Product string
}

// Scan перечисляет USB последовательные порты, подходящие под фильтр, отсортированные по ID.
func Scan(list Lister, f Filter) ([]Device, error) {
	if list == nil {
		list = enumerator.GetDetailedPortsList
	}
	ports, err := list()
	if err != nil {
		return nil, fmt.Errorf("enumerate ports: %w", err)
	}
	var out []Device
	for _, p := range ports {
		if p == nil || !p.IsUSB {
			continue
		}
		if f.VID != "" && !strings.EqualFold(f.VID, p.VID) {
			continue
		}
		if f.PID != "" && !strings.EqualFold(f.PID, p.PID) {
			continue
		}
		out = append(out, Device{ID: deviceID(p), Port: p.Name, Product: p.Product})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Find возвращает порт единственного подходящего устройства.
func Find(list Lister, f Filter) (string, error) {
	devs, err := Scan(list, f)
	if err != nil {
		return "", err
	}
	switch len(devs) {
	case 0:
		return "", fmt.Errorf("no device %s:%s found", f.VID, f.PID)
	case 1:
		return devs[0].Port, nil
	default:
		return "", fmt.Errorf("%d devices %s:%s found, set device.port", len(devs), f.VID, f.PID)
	}
}

func deviceID(p *enumerator.PortDetails) string {
	serial := p.SerialNumber
	if serial == "" {
		serial = p.Name
	}
	return fmt.Sprintf("u/%s:%s/%s", strings.ToLower(p.VID), strings.ToLower(p.PID), serial)
}
