package models

// SignalServerConfig carries the parameters the external RF-coverage tool
// needs to produce a PPM raster + DCF colour table for one mission area.
// Validate checks only some of the fields marked required below (see its
// comment); the optional fields have tool-level defaults and may be left
// zero.
type SignalServerConfig struct {
	// Required.
	SDFDirectory     string  `yaml:"sdf_directory" json:"sdf_directory"`
	OutputFile       string  `yaml:"output_file" json:"output_file"`
	Latitude         float64 `yaml:"latitude" json:"latitude"`
	Longitude        float64 `yaml:"longitude" json:"longitude"`
	TxHeight         float64 `yaml:"tx_height" json:"tx_height"`
	FrequencyMHz     float64 `yaml:"frequency_mhz" json:"frequency_mhz"`
	ERPWatts         float64 `yaml:"erp_watts" json:"erp_watts"`
	PropagationModel string  `yaml:"propagation_model" json:"propagation_model"`
	RadiusKM         float64 `yaml:"radius_km" json:"radius_km"`
	ResolutionM      float64 `yaml:"resolution_m" json:"resolution_m"`

	// Optional, tool-specific tuning.
	RxHeight           float64 `yaml:"rx_height" json:"rx_height"`
	GroundClutter      float64 `yaml:"ground_clutter" json:"ground_clutter"`
	EarthDielectric    float64 `yaml:"earth_dielectric" json:"earth_dielectric"`
	EarthConductivity  float64 `yaml:"earth_conductivity" json:"earth_conductivity"`
	AtmosphereBending  float64 `yaml:"atmosphere_bending" json:"atmosphere_bending"`
	Polarization       int     `yaml:"polarization" json:"polarization"`
	FresnelZoneClear   float64 `yaml:"fresnel_zone_clear" json:"fresnel_zone_clear"`
	SystemLossDB       float64 `yaml:"system_loss_db" json:"system_loss_db"`
	RxSensitivityDBm   float64 `yaml:"rx_sensitivity_dbm" json:"rx_sensitivity_dbm"`
	AntennaGainDBi     float64 `yaml:"antenna_gain_dbi" json:"antenna_gain_dbi"`
	AntennaBearingDeg  float64 `yaml:"antenna_bearing_deg" json:"antenna_bearing_deg"`
	AntennaDowntiltDeg float64 `yaml:"antenna_downtilt_deg" json:"antenna_downtilt_deg"`
	AntennaBeamwidth   float64 `yaml:"antenna_beamwidth" json:"antenna_beamwidth"`
	UseDBm             bool    `yaml:"use_dbm" json:"use_dbm"`
	SignalThresholdDBm float64 `yaml:"signal_threshold_dbm" json:"signal_threshold_dbm"`
	MapColorFile       string  `yaml:"map_color_file" json:"map_color_file"`
	TerrainCacheDir    string  `yaml:"terrain_cache_dir" json:"terrain_cache_dir"`
	HighResolution     bool    `yaml:"high_resolution" json:"high_resolution"`
	Verbose            bool    `yaml:"verbose" json:"verbose"`
	MaxNeighbor        int     `yaml:"max_neighbor" json:"max_neighbor"`
	MaxNeighborDistM   float64 `yaml:"max_neighbor_distance_m" json:"max_neighbor_distance_m"`
	MaxDistNeighborM   float64 `yaml:"max_distance_for_neighbor" json:"max_distance_for_neighbor"`
	MaxORToolsTimeSec  int     `yaml:"max_ortools_time" json:"max_ortools_time"`
}

// Validate checks that sdf_directory, output_file and propagation_model
// are set and that radius and resolution are positive. Latitude,
// longitude, tx_height, frequency_mhz and erp_watts are not checked.
func (c SignalServerConfig) Validate() error {
	switch {
	case c.SDFDirectory == "":
		return errRequired("sdf_directory")
	case c.OutputFile == "":
		return errRequired("output_file")
	case c.PropagationModel == "":
		return errRequired("propagation_model")
	case c.RadiusKM <= 0:
		return errRequired("radius")
	case c.ResolutionM <= 0:
		return errRequired("resolution")
	}
	return nil
}

func errRequired(field string) error {
	return &RequiredFieldError{Field: field}
}

// RequiredFieldError reports a missing required SignalServerConfig field.
type RequiredFieldError struct {
	Field string
}

func (e *RequiredFieldError) Error() string {
	return "signal server config: missing required field " + e.Field
}

// CoverageMatrix is a row-major dBm raster, dimensions fixed by the PPM
// header that produced it.
type CoverageMatrix struct {
	Rows, Cols int
	DBm        [][]float64
}

// At returns the dBm value at (row, col).
func (m CoverageMatrix) At(row, col int) float64 {
	return m.DBm[row][col]
}
