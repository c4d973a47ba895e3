package airquality_test

import "github.com/breatheroute/whoair/internal/airquality"

// rec builds a record with the given concentrations. Omitted pollutants are missing.
func rec(country, city string, year int, values map[airquality.Pollutant]float64) airquality.Record {
	if values == nil {
		values = map[airquality.Pollutant]float64{}
	}
	return airquality.Record{
		Country:        country,
		City:           city,
		Year:           year,
		Concentrations: values,
		Coverage:       map[airquality.Pollutant]float64{},
	}
}

func pm25(v float64) map[airquality.Pollutant]float64 {
	return map[airquality.Pollutant]float64{airquality.PollutantPM25: v}
}

func pm10(v float64) map[airquality.Pollutant]float64 {
	return map[airquality.Pollutant]float64{airquality.PollutantPM10: v}
}

// twoCityDataset is cities A and B over 2020-2021 with PM2.5 10, 20, 30, 40.
func twoCityDataset() *airquality.Dataset {
	return airquality.NewDataset([]airquality.Record{
		rec("X", "A", 2020, pm25(10)),
		rec("X", "A", 2021, pm25(20)),
		rec("Y", "B", 2020, pm25(30)),
		rec("Y", "B", 2021, pm25(40)),
	})
}

func dutchDataset() *airquality.Dataset {
	return airquality.NewDataset([]airquality.Record{
		rec("Netherlands", "Amsterdam", 2019, map[airquality.Pollutant]float64{
			airquality.PollutantPM25: 11, airquality.PollutantPM10: 20, airquality.PollutantNO2: 31,
		}),
		rec("Netherlands", "Rotterdam", 2019, map[airquality.Pollutant]float64{
			airquality.PollutantPM25: 13, airquality.PollutantPM10: 24,
		}),
		rec("Netherlands", "Amsterdam", 2020, map[airquality.Pollutant]float64{
			airquality.PollutantPM25: 9, airquality.PollutantNO2: 27,
		}),
		rec("Germany", "Berlin", 2020, map[airquality.Pollutant]float64{
			airquality.PollutantPM25: 14, airquality.PollutantPM10: 21, airquality.PollutantNO2: 35,
		}),
		rec("Netherlands", "Rotterdam", 2021, map[airquality.Pollutant]float64{
			airquality.PollutantPM10: 18,
		}),
	})
}
