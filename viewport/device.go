package viewport

import (
	"net/http"
	"strings"
)

// Device classes returned by DeviceClass.
const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
)

var mobileTokens = []string{
	"android", "iphone", "ipod", "ipad", "mobile", "blackberry",
	"opera mini", "iemobile", "windows phone",
}

// IsMobile reports whether the request comes from a mobile device. The
// Sec-CH-UA-Mobile client hint wins when present.
func IsMobile(userAgent string, hints http.Header) bool {
	if hints != nil {
		switch hints.Get("Sec-CH-UA-Mobile") {
		case "?1":
			return true
		case "?0":
			return false
		}
	}
	ua := strings.ToLower(userAgent)
	for _, tok := range mobileTokens {
		if strings.Contains(ua, tok) {
			return true
		}
	}
	return false
}

// DeviceClass buckets a User-Agent into mobile, tablet or desktop.
func DeviceClass(userAgent string) string {
	ua := strings.ToLower(userAgent)
	// iPad and Android tablets also carry mobile tokens; check tablets first.
	switch {
	case strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet"):
		return DeviceTablet
	case strings.Contains(ua, "android") && !strings.Contains(ua, "mobile"):
		return DeviceTablet
	case IsMobile(userAgent, nil):
		return DeviceMobile
	}
	return DeviceDesktop
}
