package settlement

import "github.com/couchcryptid/wildfire-risk-engine/internal/domain"

// Bulgaria lists the settlements scored by the daily city risk job.
var Bulgaria = []domain.Settlement{
	{Name: "Sofia", Lat: 42.6977, Lon: 23.3219},
	{Name: "Plovdiv", Lat: 42.1354, Lon: 24.7453},
	{Name: "Varna", Lat: 43.2141, Lon: 27.9147},
	{Name: "Burgas", Lat: 42.5048, Lon: 27.4626},
	{Name: "Ruse", Lat: 43.8356, Lon: 25.9657},
	{Name: "Stara Zagora", Lat: 42.4247, Lon: 25.6345},
	{Name: "Pleven", Lat: 43.4170, Lon: 24.6060},
	{Name: "Sliven", Lat: 42.6810, Lon: 26.3220},
	{Name: "Dobrich", Lat: 43.5700, Lon: 27.8300},
	{Name: "Shumen", Lat: 43.2700, Lon: 26.9200},
	{Name: "Pernik", Lat: 42.6100, Lon: 23.0400},
	{Name: "Haskovo", Lat: 41.9400, Lon: 25.5600},
	{Name: "Yambol", Lat: 42.4800, Lon: 26.5100},
	{Name: "Pazardzhik", Lat: 42.1900, Lon: 24.3300},
	{Name: "Blagoevgrad", Lat: 42.0200, Lon: 23.1000},
	{Name: "Veliko Tarnovo", Lat: 43.0800, Lon: 25.6300},
	{Name: "Vratsa", Lat: 43.2100, Lon: 23.5500},
	{Name: "Gabrovo", Lat: 42.8740, Lon: 25.3172},
	{Name: "Asenovgrad", Lat: 42.0167, Lon: 24.8667},
	{Name: "Vidin", Lat: 43.9900, Lon: 22.8800},
	{Name: "Kazanlak", Lat: 42.6200, Lon: 25.3900},
	{Name: "Kardzhali", Lat: 41.6500, Lon: 25.3700},
	{Name: "Kyustendil", Lat: 42.2800, Lon: 22.6900},
	{Name: "Montana", Lat: 43.4100, Lon: 23.2300},
	{Name: "Dimitrovgrad", Lat: 42.0500, Lon: 25.5900},
	{Name: "Targovishte", Lat: 43.2500, Lon: 26.5700},
	{Name: "Lovech", Lat: 43.1300, Lon: 24.7200},
	{Name: "Dupnitsa", Lat: 42.2700, Lon: 23.1100},
	{Name: "Silistra", Lat: 44.1200, Lon: 27.2600},
	{Name: "Razgrad", Lat: 43.5300, Lon: 26.5200},
	{Name: "Gorna Oryahovitsa", Lat: 43.1300, Lon: 25.6600},
	{Name: "Svishtov", Lat: 43.6200, Lon: 25.3400},
	{Name: "Petrich", Lat: 41.4000, Lon: 23.2100},
	{Name: "Smolyan", Lat: 41.5800, Lon: 24.7100},
	{Name: "Sandanski", Lat: 41.5700, Lon: 23.2800},
	{Name: "Samokov", Lat: 42.3400, Lon: 23.5500},
	{Name: "Lom", Lat: 43.8100, Lon: 23.2400},
	{Name: "Sevlievo", Lat: 43.0250, Lon: 25.1000},
	{Name: "Karlovo", Lat: 42.6400, Lon: 24.8100},
	{Name: "Velingrad", Lat: 42.0300, Lon: 23.9900},
	{Name: "Nova Zagora", Lat: 42.4900, Lon: 26.0100},
	{Name: "Aytos", Lat: 42.7000, Lon: 27.2500},
	{Name: "Gotse Delchev", Lat: 41.5700, Lon: 23.7300},
	{Name: "Kavarna", Lat: 43.4300, Lon: 28.3400},
	{Name: "Botevgrad", Lat: 42.9000, Lon: 23.7900},
	{Name: "Peshtera", Lat: 42.0300, Lon: 24.3000},
	{Name: "Harmanli", Lat: 41.9400, Lon: 25.9000},
	{Name: "Popovo", Lat: 43.3500, Lon: 26.2300},
	{Name: "Chirpan", Lat: 42.2000, Lon: 25.3300},
	{Name: "Provadia", Lat: 43.1800, Lon: 27.4400},
	{Name: "Devin", Lat: 41.7431, Lon: 24.4000},
}
