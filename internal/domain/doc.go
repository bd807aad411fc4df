// Package domain models satellite thermal-anomaly detections, user fire reports,
// and the weather inputs of the fire-danger model.
//
// # Data Source
//
// Detections originate from the NASA FIRMS (Fire Information for Resource
// Management System) VIIRS near-real-time area feed, served as CSV at
// https://firms.modaps.eosdis.nasa.gov/api/area/. The collector publishes each
// row as flat JSON (every column a string) to the Kafka source topic. User
// reports from the report service are mapped onto the same shape with
// satellite "REPORT" and instrument "USER".
//
// # FIRMS Data Conventions
//
// Columns:
//
//	latitude, longitude    WGS-84 decimal degrees
//	bright_ti4, bright_ti5 brightness temperature of the I-4 / I-5 channels (K)
//	scan, track            pixel footprint (km)
//	acq_date, acq_time     acquisition date (YYYY-MM-DD) and UTC time (HHMM)
//	confidence             "h" high, "n" nominal, "l" low (VIIRS);
//	                       MODIS feeds publish 0–100 instead
//	frp                    fire radiative power (MW)
//	daynight               "D" or "N"
//
// Time format:
//
//	HHMM in 24-hour notation, e.g. "0142" = 01:42 UTC.
//	Three-digit values are zero-padded: "930" → "0930".
//
// Missing numeric values are treated as zero. Rows without coordinates are
// rejected because every downstream computation is spatial.
//
// # Fire Code State
//
// The fire-danger model carries three moisture codes (FFMC, DMC, DC) from one
// day to the next. The codes are plain values owned by the caller: they are
// read before a daily update and written after it, never held in package state.
// [DefaultFireCodeState] is the moderate start-of-season seed.
//
// # ID Generation
//
// Detection IDs are deterministic SHA-256 hashes of lat|lon|date|time|satellite,
// so replaying the same feed row produces the same ID. See [generateID].
package domain
