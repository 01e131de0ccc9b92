package spatial

import (
	"strings"
)

// WGS84 is the geographic CRS every boundary is reprojected to.
const WGS84 = "EPSG:4326"

// DisplayName renders a CRS definition the way it is stored in documents:
// "EPSG:<code>" when the definition's outermost authority is EPSG, otherwise
// the definition itself.
func DisplayName(def string) string {
	def = strings.TrimSpace(def)
	if def == "" {
		return ""
	}
	if code, ok := epsgCode(def); ok {
		return "EPSG:" + code
	}
	return def
}

// isWGS84 reports whether def names geographic WGS84 with lon/lat axes as
// output by the resolver.
func isWGS84(def string) bool {
	switch strings.ToUpper(strings.TrimSpace(def)) {
	case "EPSG:4326", "OGC:CRS84", "CRS84":
		return true
	}
	return false
}

func epsgCode(def string) (string, bool) {
	upper := strings.ToUpper(def)
	if rest, ok := strings.CutPrefix(upper, "EPSG:"); ok {
		rest = strings.TrimSpace(rest)
		return rest, rest != "" && isDigits(rest)
	}
	auth, code, ok := topLevelAuthority(def)
	if !ok || !strings.EqualFold(auth, "EPSG") {
		return "", false
	}
	return code, isDigits(code)
}

// topLevelAuthority finds the AUTHORITY (WKT1) or ID (WKT2) node that is a
// direct child of the outermost WKT object.
func topLevelAuthority(wkt string) (auth, code string, ok bool) {
	depth := 0
	inQuote := false
	tokenStart := -1

	for i := 0; i < len(wkt); i++ {
		c := wkt[i]
		if c == '"' {
			inQuote = !inQuote
			continue
		}
		if inQuote {
			continue
		}
		switch {
		case c == '[' || c == '(':
			if depth == 1 && tokenStart >= 0 {
				name := strings.ToUpper(strings.TrimSpace(wkt[tokenStart:i]))
				if name == "AUTHORITY" || name == "ID" {
					end := closing(wkt, i)
					if end < 0 {
						return "", "", false
					}
					auth, code, ok = splitAuthority(wkt[i+1 : end])
				}
			}
			depth++
			tokenStart = -1
		case c == ']' || c == ')':
			depth--
			tokenStart = -1
		case c == ',':
			tokenStart = -1
		case tokenStart < 0 && c != ' ' && c != '\t' && c != '\n' && c != '\r':
			tokenStart = i
		}
	}
	return auth, code, ok
}

func closing(s string, open int) int {
	depth := 0
	inQuote := false
	for i := open; i < len(s); i++ {
		switch c := s[i]; {
		case c == '"':
			inQuote = !inQuote
		case inQuote:
		case c == '[' || c == '(':
			depth++
		case c == ']' || c == ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func splitAuthority(body string) (string, string, bool) {
	parts := strings.Split(body, ",")
	if len(parts) < 2 {
		return "", "", false
	}
	unquote := func(s string) string { return strings.Trim(strings.TrimSpace(s), `"`) }
	return unquote(parts[0]), unquote(parts[1]), true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// crsFromURN converts GeoJSON legacy crs names such as
// "urn:ogc:def:crs:EPSG::26915" to "EPSG:26915".
func crsFromURN(name string) string {
	name = strings.TrimSpace(name)
	upper := strings.ToUpper(name)
	switch {
	case strings.HasPrefix(upper, "URN:OGC:DEF:CRS:EPSG:"):
		parts := strings.Split(name, ":")
		return "EPSG:" + parts[len(parts)-1]
	case strings.HasPrefix(upper, "URN:OGC:DEF:CRS:OGC:") && strings.HasSuffix(upper, "CRS84"):
		return "OGC:CRS84"
	}
	return name
}
