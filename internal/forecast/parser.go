package forecast

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/bbernstein/surftrack/backend-go/internal/models"
	"github.com/rs/zerolog/log"
)

const unknownDate = "Unknown"

var (
	dayLabelPattern  = regexp.MustCompile(`([a-zA-Z]+)(\d+)`)
	tideTimePattern  = regexp.MustCompile(`(\d{1,2}:\d{2}\s*[AP]M)`)
	numberPattern    = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	fullNumber       = regexp.MustCompile(`^-?\d+(?:\.\d+)?$`)
	waveHeightNumber = regexp.MustCompile(`(\d+(\.\d+)?)`)
	windSpeedNumber  = regexp.MustCompile(`(\d+)`)
)

// ForecastRow is one hourly column of the forecast table
type ForecastRow struct {
	Timestamp     time.Time `json:"timestamp"`
	WaveHeight    *float64  `json:"waveHeight"`
	WaveDirection *string   `json:"waveDirection"`
	Period        *float64  `json:"period"`
	Energy        *float64  `json:"energy"`
	WindSpeed     *float64  `json:"windSpeed"`
	WindDirection *string   `json:"windDirection"`
	Rating        int       `json:"rating"`
}

// TideRow is a single high or low water event
type TideRow struct {
	Timestamp time.Time       `json:"timestamp"`
	Height    float64         `json:"height"`
	Type      models.TideType `json:"type"`
}

// Page holds everything extracted from one forecast page. Tides list every
// high before every low.
type Page struct {
	Forecasts []ForecastRow `json:"forecasts"`
	Tides     []TideRow     `json:"tides"`
}

// Empty reports whether the page produced no rows at all
func (p Page) Empty() bool {
	return len(p.Forecasts) == 0 && len(p.Tides) == 0
}

// Record converts the row into its storage model
func (r ForecastRow) Record(spotID uint, updatedAt time.Time) models.ForecastRecord {
	rating := r.Rating
	return models.ForecastRecord{
		SpotID:        spotID,
		Timestamp:     r.Timestamp,
		WaveHeight:    r.WaveHeight,
		WaveDirection: r.WaveDirection,
		Period:        r.Period,
		Energy:        r.Energy,
		WindSpeed:     r.WindSpeed,
		WindDirection: r.WindDirection,
		Rating:        &rating,
		UpdatedAt:     updatedAt,
	}
}

// Event converts the row into its storage model
func (r TideRow) Event(spotID uint) models.TideEvent {
	return models.TideEvent{
		SpotID:    spotID,
		Timestamp: r.Timestamp,
		Height:    r.Height,
		Type:      r.Type,
	}
}

func emptyPage() Page {
	return Page{Forecasts: []ForecastRow{}, Tides: []TideRow{}}
}

// ParsePage extracts forecast columns and tide events from a rendered
// forecast page. It never fails: missing structure yields an empty page and
// individual unparsable columns or tide cells are skipped.
func ParsePage(html string, resolver *Resolver) Page {
	if resolver == nil {
		resolver = NewResolver()
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		log.Warn().Err(err).Msg("Could not read forecast page")
		return emptyPage()
	}

	table := doc.Find("table.forecast-table__table").First()
	if table.Length() == 0 {
		log.Info().Msg("Forecast table not found")
		return emptyPage()
	}

	namedRow := func(name string) *goquery.Selection {
		return table.Find(`tr[data-row-name="` + name + `"]`).First()
	}

	timeRow := table.Find("tr.forecast-table-time").First()
	daysRow := table.Find("tr.forecast-table-days").First()
	ratingRow := table.Find("tr.forecast-table-rating").First()
	waveRow := namedRow("wave-height")
	periodRow := namedRow("periods")
	energyRow := namedRow("energy-maxenergy")
	windRow := namedRow("wind")

	if timeRow.Length() == 0 || waveRow.Length() == 0 || windRow.Length() == 0 {
		log.Info().
			Bool("time_row", timeRow.Length() > 0).
			Bool("wave_row", waveRow.Length() > 0).
			Bool("wind_row", windRow.Length() > 0).
			Msg("Forecast table is missing required rows")
		return emptyPage()
	}

	columns := waveRow.Find("td").Length()
	dates := columnDates(daysRow, columns)

	page := emptyPage()

	timeCells := cellTexts(timeRow)
	waveCells := cellTexts(waveRow)
	periodCells := cellTexts(periodRow)
	energyCells := cellTexts(energyRow)
	windCells := cellTexts(windRow)
	ratingCells := cellTexts(ratingRow)

	for i := 0; i < columns; i++ {
		label := dates[i] + " " + To24Hour(cellAt(timeCells, i))
		ts, ok := resolver.Resolve(label)
		if !ok {
			continue
		}

		row := ForecastRow{Timestamp: ts}
		row.WaveHeight, row.WaveDirection = splitMeasure(cellAt(waveCells, i), waveHeightNumber)
		row.Period = safeFloat(cellAt(periodCells, i))
		row.Energy = safeFloat(cellAt(energyCells, i))
		row.WindSpeed, row.WindDirection = splitMeasure(cellAt(windCells, i), windSpeedNumber)
		row.Rating = parseRating(cellAt(ratingCells, i))

		page.Forecasts = append(page.Forecasts, row)
	}

	page.Tides = append(page.Tides, parseTides(namedRow("high-tide"), models.TideTypeHigh, dates, resolver)...)
	page.Tides = append(page.Tides, parseTides(namedRow("low-tide"), models.TideTypeLow, dates, resolver)...)

	return page
}

// columnDates expands the days header by colspan so that every column has a
// "<Day> <N>" label. Columns the header does not reach are labelled Unknown.
func columnDates(daysRow *goquery.Selection, columns int) []string {
	dates := make([]string, 0, columns)
	daysRow.Find("td").Each(func(_ int, cell *goquery.Selection) {
		label := dayLabelPattern.ReplaceAllString(strippedText(cell, ""), "$1 $2")
		span := 1
		if raw, ok := cell.Attr("colspan"); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && n > 0 {
				span = n
			}
		}
		for j := 0; j < span; j++ {
			dates = append(dates, label)
		}
	})
	for len(dates) < columns {
		dates = append(dates, unknownDate)
	}
	return dates
}

func parseTides(row *goquery.Selection, tideType models.TideType, dates []string, resolver *Resolver) []TideRow {
	var tides []TideRow
	row.Find("td").Each(func(i int, cell *goquery.Selection) {
		raw := strippedText(cell, " ")
		if raw == "" {
			return
		}

		date := unknownDate
		if i < len(dates) {
			date = dates[i]
		}

		timeToken := tideTimePattern.FindString(raw)

		heightText := ""
		if marker := cell.Find(".heighttide").First(); marker.Length() > 0 {
			heightText = strippedText(marker, "")
		} else if numbers := numberPattern.FindAllString(raw, -1); len(numbers) > 0 {
			heightText = numbers[len(numbers)-1]
		}

		if timeToken == "" && heightText == "" {
			return
		}

		clock := To24Hour(strings.ReplaceAll(timeToken, " ", ""))
		height := safeFloat(heightText)
		if clock == "" || height == nil {
			return
		}

		ts, ok := resolver.Resolve(date + " " + clock)
		if !ok {
			log.Info().
				Str("tide_type", string(tideType)).
				Str("date", date).
				Str("time", clock).
				Msg("Skipping tide with unparsable timestamp")
			return
		}

		tides = append(tides, TideRow{Timestamp: ts, Height: *height, Type: tideType})
	})
	return tides
}

// splitMeasure reads the first number in text as the value and whatever is
// left over as a direction token.
func splitMeasure(text string, pattern *regexp.Regexp) (*float64, *string) {
	match := pattern.FindString(text)
	if match == "" {
		return nil, nil
	}

	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return nil, nil
	}

	var direction *string
	if rest := strings.TrimSpace(strings.ReplaceAll(text, match, "")); rest != "" {
		direction = &rest
	}
	return &value, direction
}

func safeFloat(text string) *float64 {
	text = strings.TrimSpace(text)
	if !fullNumber.MatchString(text) {
		return nil
	}
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil
	}
	return &value
}

func parseRating(text string) int {
	if text == "" {
		return 0
	}
	for _, r := range text {
		if r < '0' || r > '9' {
			return 0
		}
	}
	rating, err := strconv.Atoi(text)
	if err != nil {
		return 0
	}
	return rating
}

func cellTexts(row *goquery.Selection) []string {
	if row == nil || row.Length() == 0 {
		return nil
	}
	cells := row.Find("td")
	texts := make([]string, 0, cells.Length())
	cells.Each(func(_ int, cell *goquery.Selection) {
		texts = append(texts, strippedText(cell, ""))
	})
	return texts
}

func cellAt(cells []string, i int) string {
	if i < len(cells) {
		return cells[i]
	}
	return ""
}

// strippedText collects every descendant text node, trims each and joins the
// non-empty ones with sep.
func strippedText(sel *goquery.Selection, sep string) string {
	var parts []string
	var walk func(*goquery.Selection)
	walk = func(s *goquery.Selection) {
		s.Contents().Each(func(_ int, node *goquery.Selection) {
			if goquery.NodeName(node) == "#text" {
				if text := strings.TrimSpace(node.Text()); text != "" {
					parts = append(parts, text)
				}
				return
			}
			walk(node)
		})
	}
	walk(sel)
	return strings.Join(parts, sep)
}
