package domain

// Site identifies one controllable energy site on the fleet API.
type Site struct {
	// ID is the energy_site_id used to address commands.
	ID string

	// Name is the site's display name, if the API provides one.
	Name string
}

// SiteInfo is the configuration snapshot returned by the site_info
// endpoint. Only the reserve percent participates in control logic; it
// supplies the before/after contrast in notifications.
type SiteInfo struct {
	BackupReservePercent float64
	SiteName             string
}

// LiveStatus is the instantaneous state returned by the live_status
// endpoint. Used only to enrich notifications, never for control decisions.
type LiveStatus struct {
	// PercentageCharged is the current battery charge level.
	PercentageCharged float64

	// BatteryPower is the battery flow in watts. Negative means charging.
	BatteryPower float64

	// SolarPower is current solar production in watts.
	SolarPower float64

	// LoadPower is current home consumption in watts.
	LoadPower float64
}

// Charging reports whether the battery is currently charging.
func (s *LiveStatus) Charging() bool {
	return s.BatteryPower < 0
}
