// Package fwi implements the daily update of the Canadian Forest Fire Weather
// Index System and a normalized 0–100 risk score.
//
// Inputs are the standard noon observation and the previous day's moisture
// codes. Implausible inputs are clamped, never rejected.
package fwi

import (
	"math"

	"github.com/couchcryptid/wildfire-risk-engine/internal/domain"
)

// fwiScaleMax is the FWI value mapped to 100% risk.
const fwiScaleMax = 30.0

// Day-length factors indexed by month (index 0 unused).
var (
	dmcDayLength = [13]float64{0, 6.5, 7.5, 9.0, 12.8, 16.0, 17.2, 16.0, 14.0, 12.3, 10.3, 9.0, 7.8}
	dcDayLength  = [13]float64{0, 1.6, 1.6, 1.6, 1.6, 1.6, 1.6, 1.6, 1.6, 1.6, 1.6, 1.6, 1.6}
)

// Result holds the updated codes and the derived indices.
type Result struct {
	FFMC        float64 `json:"ffmc"`
	DMC         float64 `json:"dmc"`
	DC          float64 `json:"dc"`
	ISI         float64 `json:"isi"`
	BUI         float64 `json:"bui"`
	FWI         float64 `json:"fwi"`
	RiskPercent float64 `json:"risk_percent"`
}

// State returns the moisture codes to carry into the next day's update.
func (r Result) State() domain.FireCodeState {
	return domain.FireCodeState{FFMC: r.FFMC, DMC: r.DMC, DC: r.DC}
}

// Compute advances the moisture codes by one day and derives ISI, BUI, FWI and
// the risk percentage. It is a pure function of its arguments.
func Compute(obs domain.WeatherObservation, prior domain.FireCodeState) Result {
	temp := clamp(obs.TemperatureC, -40, 60)
	rh := clamp(obs.RelativeHumidity, 0, 100)
	wind := math.Max(0, obs.WindSpeedKPH)
	rain := math.Max(0, obs.RainMM)
	month := min(max(obs.Month, 1), 12)

	ffmc := updateFFMC(prior.FFMC, temp, rh, wind, rain)
	dmc := updateDMC(prior.DMC, temp, rh, rain, month)
	dc := updateDC(prior.DC, temp, rain, month)

	isi := initialSpreadIndex(ffmc, wind)
	bui := buildUpIndex(dmc, dc)
	fwi := fireWeatherIndex(isi, bui)
	risk := math.Min(100, fwi/fwiScaleMax*100)

	return Result{
		FFMC:        round(ffmc, 2),
		DMC:         round(dmc, 2),
		DC:          round(dc, 2),
		ISI:         round(isi, 2),
		BUI:         round(bui, 2),
		FWI:         round(fwi, 2),
		RiskPercent: round(risk, 1),
	}
}

// ComputeFromWeather scores an observation from the start-of-season seed.
func ComputeFromWeather(obs domain.WeatherObservation) Result {
	return Compute(obs, domain.DefaultFireCodeState())
}

// updateFFMC is stage 1: fine fuel moisture.
func updateFFMC(prev, temp, rh, wind, rain float64) float64 {
	mo := ffmcToMoisture(prev)

	if rain > 0.5 {
		rf := rain - 0.5
		mo1 := mo +
			42.5*rf*math.Exp(-100.0/(251.0-mo))*(1.0-math.Exp(-6.93/rf)) +
			0.0015*(mo-150.0)*(mo-150.0)*math.Sqrt(rf)
		mo = math.Min(mo1, 250.0)
	}

	tempTerm := 0.18 * (21.1 - temp) * (1.0 - math.Exp(-0.115*rh))
	ed := 0.942*math.Pow(rh, 0.679) + 11.0*math.Exp((rh-100.0)/10.0) + tempTerm
	ew := 0.618*math.Pow(rh, 0.753) + 10.0*math.Exp((rh-100.0)/10.0) + tempTerm

	var m float64
	if mo < ed {
		k := logDecayRate(rh/100.0, wind, temp)
		m = ed - (ed-mo)*math.Pow(10.0, -k)
	} else {
		k := logDecayRate((100.0-rh)/100.0, wind, temp)
		m = ew + (mo-ew)*math.Pow(10.0, -k)
	}

	return clamp(59.5*(250.0-m)/(147.2+m), 0, 101)
}

// logDecayRate is the drying/wetting rate for the FFMC moisture update.
func logDecayRate(fraction, wind, temp float64) float64 {
	k0 := 0.424*(1.0-math.Pow(fraction, 1.7)) + 0.0694*math.Sqrt(wind)*(1.0-math.Pow(fraction, 8.0))
	return k0 * 0.581 * math.Exp(0.0365*temp)
}

func ffmcToMoisture(ffmc float64) float64 {
	return 147.2 * (101.0 - ffmc) / (59.5 + ffmc)
}

// updateDMC is stage 2: duff moisture.
func updateDMC(prev, temp, rh, rain float64, month int) float64 {
	dmc := prev
	if rain > 1.5 {
		rw := 0.92*rain - 1.27
		mo := 20.0 + math.Exp(5.6348-dmc/43.43)
		var b float64
		switch {
		case dmc <= 33.0:
			b = 100.0 / (0.5 + 0.3*dmc)
		case dmc <= 65.0:
			b = 14.0 - 1.3*math.Log(dmc)
		default:
			b = 6.2*math.Log(dmc) - 17.2
		}
		mr := mo + 1000.0*rw/(48.77+b*rw)
		dmc = 43.43 * (5.6348 - math.Log(math.Max(1e-9, mr-20.0)))
	}
	k := 1.894 * (temp + 1.1) * (100.0 - rh) * dmcDayLength[month] * 1e-6
	return math.Max(0, dmc+k)
}

// updateDC is stage 3: drought.
func updateDC(prev, temp, rain float64, month int) float64 {
	dc := prev
	if rain > 2.8 {
		rw := 0.83*rain - 1.27
		qo := 800.0 * math.Exp(-dc/400.0)
		qr := qo + 3.937*rw
		dc = 400.0 * math.Log(800.0/math.Max(1e-9, qr))
	}
	v := 0.36*(temp+2.8) + dcDayLength[month]
	return math.Max(0, dc+math.Max(0, v))
}

// initialSpreadIndex is the first half of stage 4.
func initialSpreadIndex(ffmc, wind float64) float64 {
	m := ffmcToMoisture(ffmc)
	windFn := math.Exp(0.05039 * wind)
	fuelFn := 91.9 * math.Exp(-0.1386*m) * (1 + math.Pow(m, 5.31)/4.93e7)
	return 0.208 * windFn * math.Max(0, fuelFn)
}

// buildUpIndex is the second half of stage 4. When DMC and DC are both zero the
// first form is 0/0; that early-season case floors BUI at 0.
func buildUpIndex(dmc, dc float64) float64 {
	if dmc <= 0.4*dc {
		bui := 0.8 * dc * dmc / (dmc + 0.4*dc)
		if math.IsNaN(bui) || math.IsInf(bui, 0) {
			return 0
		}
		return bui
	}
	bui := dmc - (1.0-0.8*dc/(dmc+0.4*dc))*(0.92+math.Pow(0.0114*dmc, 1.7))
	return math.Max(0, bui)
}

// fireWeatherIndex is stage 5.
func fireWeatherIndex(isi, bui float64) float64 {
	if bui <= 0 {
		return 0
	}
	b := 0.1 * isi * (0.626*math.Pow(bui, 0.809) + 2.0)
	if b > 1.0 {
		b = math.Exp(2.72 * math.Pow(0.434*math.Log(b), 0.647))
	}
	return math.Max(0, b)
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

func round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
