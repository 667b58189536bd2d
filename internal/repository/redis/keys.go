package redisrepo

import "fmt"

const ns = "parkgo:v1"

func KeyFacilitySummary(facilityID int64) string {
	return fmt.Sprintf("%s:facility:%d:summary", ns, facilityID)
}

func KeyFacilitySpots(facilityID int64, onlyAvailable bool) string {
	scope := "all"
	if onlyAvailable {
		scope = "available"
	}
	return fmt.Sprintf("%s:facility:%d:spots:%s", ns, facilityID, scope)
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func KeyIdemPark(idemKey string) string {
	return fmt.Sprintf("%s:idem:park:%s", ns, idemKey)
}

func ChannelFacilitiesChanged() string {
	return ns + ":facilities:changed"
}
