//go:build windows

package netif

import (
	"errors"
	"fmt"
	"net"
	"os"
	"unsafe"

	"github.com/go-logr/logr"
	"golang.org/x/sys/windows"
)

type windowsLister struct {
	logger logr.Logger
}

func newLister(cfg Config) Lister {
	return &windowsLister{logger: cfg.Logger}
}

func (l *windowsLister) List() ([]Interface, error) {
	aas, err := adapterAddresses()
	if err != nil {
		return nil, fmt.Errorf("failed to list adapters: %w", err)
	}

	var result []Interface
	for _, aa := range aas {
		var ips []net.IP
		for ua := aa.FirstUnicastAddress; ua != nil; ua = ua.Next {
			if ip := ua.Address.IP(); ip != nil {
				ips = append(ips, ip)
			}
		}

		result = append(result, Interface{
			Name:  windows.UTF16PtrToString(aa.FriendlyName),
			Index: int(aa.IfIndex),
			Type:  adapterType(aa.IfType),
			State: adapterState(aa.OperStatus),
			Addrs: ips,
		})
	}

	return result, nil
}

// adapterAddresses returns the adapter list, growing the buffer as GetAdaptersAddresses asks
func adapterAddresses() ([]*windows.IpAdapterAddresses, error) {
	var b []byte
	size := uint32(15000)
	for {
		b = make([]byte, size)
		err := windows.GetAdaptersAddresses(windows.AF_UNSPEC, windows.GAA_FLAG_INCLUDE_PREFIX, 0,
			(*windows.IpAdapterAddresses)(unsafe.Pointer(&b[0])), &size)
		if err == nil {
			if size == 0 {
				return nil, nil
			}
			break
		}
		if !errors.Is(err, windows.ERROR_BUFFER_OVERFLOW) {
			return nil, os.NewSyscallError("getadaptersaddresses", err)
		}
		if size <= uint32(len(b)) {
			return nil, os.NewSyscallError("getadaptersaddresses", err)
		}
	}

	var aas []*windows.IpAdapterAddresses
	for aa := (*windows.IpAdapterAddresses)(unsafe.Pointer(&b[0])); aa != nil; aa = aa.Next {
		aas = append(aas, aa)
	}
	return aas, nil
}

func adapterType(ifType uint32) Type {
	switch ifType {
	case windows.IF_TYPE_OTHER:
		return TypeUnknown
	case windows.IF_TYPE_SOFTWARE_LOOPBACK:
		return TypeLoopback
	case windows.IF_TYPE_ETHERNET_CSMACD:
		return TypeEthernet
	case windows.IF_TYPE_IEEE80211:
		return TypeWireless
	case windows.IF_TYPE_TUNNEL, windows.IF_TYPE_PPP:
		return TypeTunnel
	default:
		return TypeOther
	}
}

func adapterState(status uint32) State {
	switch status {
	case windows.IfOperStatusUp:
		return StateUp
	case windows.IfOperStatusDown, windows.IfOperStatusNotPresent, windows.IfOperStatusLowerLayerDown:
		return StateDown
	case windows.IfOperStatusUnknown:
		return StateUnknown
	default:
		return StateOther
	}
}
