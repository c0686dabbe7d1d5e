package selector

import (
	"strconv"
	"strings"
)

// Endpoint names appended to the POST base URL
const (
	EndpointGet           = "get"
	EndpointMetro         = "metro"
	EndpointSubLocalities = "sub-localities"
)

// Refinement names listed in a region response
const (
	RefinementMetro         = "metro"
	RefinementSubLocalities = "sub-localities"
)

// Form field names
const (
	paramGeoID = "params[geoId]"
	paramGID   = "params[gid]"
	paramCRC   = "crc"
)

// BuildEndpointURL joins the POST base URL and an endpoint name
func BuildEndpointURL(base, endpoint string) string {
	return strings.TrimSuffix(base, "/") + "/" + endpoint
}

func regionParams(geoID int64) map[string]string {
	return map[string]string{
		paramGeoID: strconv.FormatInt(geoID, 10),
	}
}

func detailParams(geoID, gid int64) map[string]string {
	return map[string]string{
		paramGeoID: strconv.FormatInt(geoID, 10),
		paramGID:   strconv.FormatInt(gid, 10),
	}
}
