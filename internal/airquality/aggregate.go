package airquality

import "sort"

// BuildCountryTrend averages every pollutant per year over the cities of one
// country. Years where a pollutant has no measurement produce no point.
func BuildCountryTrend(ds *Dataset, pollutants []Pollutant, country string, years YearRange) (TrendResult, error) {
	if country == "" || len(pollutants) == 0 {
		return &EmptySelection{Message: MsgSelectCountryAndPollutant}, nil
	}

	subset, err := Filter(ds, Selection{Country: country, Years: years})
	if err != nil {
		return nil, err
	}

	type acc struct {
		sum   float64
		count int
	}
	perYear := make(map[int]map[Pollutant]*acc)
	for _, rec := range subset.records {
		group, ok := perYear[rec.Year]
		if !ok {
			group = make(map[Pollutant]*acc, len(pollutants))
			perYear[rec.Year] = group
		}
		for _, p := range pollutants {
			v, ok := rec.Value(p)
			if !ok {
				continue
			}
			a := group[p]
			if a == nil {
				a = &acc{}
				group[p] = a
			}
			a.sum += v
			a.count++
		}
	}

	sortedYears := make([]int, 0, len(perYear))
	for y := range perYear {
		sortedYears = append(sortedYears, y)
	}
	sort.Ints(sortedYears)

	chart := &TrendChart{
		Title:       "Average Air Pollution in " + country,
		XAxisTitle:  XAxisTitle,
		YAxisTitle:  YAxisTitle,
		LegendTitle: "Pollutant",
		Series:      make([]TrendSeries, 0, len(pollutants)),
	}
	for i, p := range pollutants {
		points := make([]Point, 0, len(sortedYears))
		for _, y := range sortedYears {
			if a := perYear[y][p]; a != nil && a.count > 0 {
				points = append(points, Point{Year: y, Value: a.sum / float64(a.count)})
			}
		}
		chart.Series = append(chart.Series, TrendSeries{
			Name:       p.Label(),
			Pollutant:  p,
			Points:     points,
			Color:      PaletteColor(i),
			Dash:       p.Dash(),
			ShowLegend: true,
		})
	}

	return chart, nil
}
