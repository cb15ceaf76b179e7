package application

// OSC addresses exchanged with the peer. Matching is exact and case
// sensitive: the inbound count is "Childcount", the count we report is
// "ChildCount".
const (
	AddressChildcountIn  = "/avatar/parameters/Childcount"
	AddressChildCountOut = "/avatar/parameters/ChildCount"
	AddressGestationTime = "/avatar/parameters/GestationTime"
	AddressGestation     = "/avatar/parameters/Gestation"
	AddressIsPregnant    = "/avatar/parameters/IsPregnant"
	AddressPregnancySave = "/avatar/parameters/PregnancySave"
	AddressAvatarChange  = "/avatar/change"

	// PregnancySavePointer marks an avatar that carries the gestation system.
	PregnancySavePointer = "/CONTENTS/PregnancySave"
)
