package schedule

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/gocarina/gocsv"
	"golang.org/x/exp/maps"

	"github.com/caltrain-transit/railfeed/pkg/config"
	"github.com/caltrain-transit/railfeed/pkg/errs"
)

// archiveTables is the in-memory form of every GTFS table the builder
// consumes, read straight out of the zip before any canonicalization runs.
type archiveTables struct {
	Stops               []stopRow
	Routes              []routeRow
	Trips               []tripRow
	StopTimes           []stopTimeRow
	Calendars           []calendarRow
	CalendarDates       []calendarDateRow
	FareAttributes      []fareAttributeRow
	FareRules           []fareRuleRow
	FarezoneAttributes  []farezoneAttributeRow
}

// Build reads a GTFS zip archive and produces the canonical static
// schedule: stations, deduplicated route patterns, trips, calendars, fares
// and the station-pair index. archiveBytes is hashed as-is for the
// snapshot's content version, so callers should pass the exact bytes
// fetched from the source, not a re-serialized copy.
func Build(archiveBytes []byte, cfg config.Schedule) (*StaticSchedule, error) {
	tables, err := readArchive(archiveBytes)
	if err != nil {
		return nil, errs.New(errs.KindDecode, "schedule.Build", err)
	}

	stations, stopToStation := buildStations(tables.Stops, cfg.StationCleanTerms)

	routeNames := map[string]string{}
	for _, r := range tables.Routes {
		name := r.ShortName
		if name == "" {
			name = r.ID
		}
		routeNames[r.ID] = name
	}

	patterns, patternIDs, tripSequences := buildPatterns(tables.Trips, tables.StopTimes, stopToStation)

	trips, err := buildTrips(tables.Trips, tripSequences, patternIDs, routeNames)
	if err != nil {
		return nil, errs.New(errs.KindDecode, "schedule.Build", err)
	}

	calendars := buildCalendarSection(tables.Calendars, tables.CalendarDates)
	fares := buildFares(tables.FareAttributes, tables.FareRules, tables.FarezoneAttributes)
	pairIndex := buildPairIndex(trips, patterns)
	stationOrder := buildStationOrder(stations)

	meta := Meta{
		Version:       contentVersion(archiveBytes),
		EndDate:       maxCalendarEndDate(tables.Calendars),
		SchemaVersion: cfg.SchemaVersion,
	}

	return &StaticSchedule{
		Meta:         meta,
		Patterns:     patterns,
		Trips:        trips,
		Calendars:    calendars,
		Stations:     stations,
		Fares:        fares,
		PairIndex:    pairIndex,
		StationOrder: stationOrder,
	}, nil
}

func readArchive(archiveBytes []byte) (*archiveTables, error) {
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		r := csv.NewReader(in)
		r.FieldsPerRecord = -1
		return r
	})

	archive, err := zip.NewReader(bytes.NewReader(archiveBytes), int64(len(archiveBytes)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	tables := &archiveTables{}
	fileMap := map[string]interface{}{
		"stops.txt":                &tables.Stops,
		"routes.txt":               &tables.Routes,
		"trips.txt":                &tables.Trips,
		"stop_times.txt":           &tables.StopTimes,
		"calendar.txt":             &tables.Calendars,
		"calendar_dates.txt":       &tables.CalendarDates,
		"fare_attributes.txt":      &tables.FareAttributes,
		"fare_rules.txt":           &tables.FareRules,
		"farezone_attributes.txt":  &tables.FarezoneAttributes,
	}

	for _, zipFile := range archive.File {
		destination, exists := fileMap[zipFile.Name]
		if !exists {
			continue
		}

		fileReader, err := zipFile.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", zipFile.Name, err)
		}

		err = gocsv.Unmarshal(fileReader, destination)
		fileReader.Close()
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", zipFile.Name, err)
		}
	}

	return tables, nil
}

// buildStations aggregates platform child stops under their parent station,
// cleans agency-boilerplate name suffixes, and drops any parent with no
// children. It returns the canonical stations keyed by the parent's own
// GTFS stop id, plus the child-stop-id -> canonical-station-id lookup
// needed to translate stop_times rows.
func buildStations(stops []stopRow, cleanTerms []string) (map[string]Station, map[string]string) {
	stations := map[string]Station{}
	for _, s := range stops {
		if parseIntField(s.LocationType) != 1 {
			continue
		}
		stations[s.ID] = Station{
			Name: cleanStationName(s.Name, cleanTerms),
			Zone: s.ZoneID,
			Lat:  s.Latitude,
			Lon:  s.Longitude,
		}
	}

	stopToStation := map[string]string{}
	for _, s := range stops {
		if parseIntField(s.LocationType) != 0 || s.ParentStation == "" {
			continue
		}
		station, ok := stations[s.ParentStation]
		if !ok {
			continue
		}
		station.ChildIDs = append(station.ChildIDs, s.ID)
		if station.Zone == "" {
			station.Zone = s.ZoneID
		}
		stations[s.ParentStation] = station
		stopToStation[s.ID] = s.ParentStation
	}

	for id, station := range stations {
		if len(station.ChildIDs) == 0 {
			delete(stations, id)
		}
	}

	return stations, stopToStation
}

func cleanStationName(name string, terms []string) string {
	for _, t := range terms {
		name = strings.ReplaceAll(name, t, "")
	}
	return strings.TrimSpace(strings.Join(strings.Fields(name), " "))
}

// tripStopSequence is the canonical station sequence and the interleaved
// [arr,dep,...] minute array built for a single trip_id.
type tripStopSequence struct {
	stations  []string
	stopTimes []int
}

// buildPatterns groups stop_times by trip, translates stop ids to canonical
// stations, and deduplicates the resulting station sequences into patterns.
// Pattern ids are assigned p0, p1, ... in order of first encounter while
// walking trips.txt in file order, so the same archive bytes always produce
// the same pattern ids.
func buildPatterns(trips []tripRow, stopTimes []stopTimeRow, stopToStation map[string]string) (map[string][]string, map[string]string, map[string]tripStopSequence) {
	byTrip := map[string][]stopTimeRow{}
	for _, st := range stopTimes {
		byTrip[st.TripID] = append(byTrip[st.TripID], st)
	}
	for tripID := range byTrip {
		rows := byTrip[tripID]
		sort.Slice(rows, func(i, j int) bool { return rows[i].StopSequence < rows[j].StopSequence })
		byTrip[tripID] = rows
	}

	patterns := map[string][]string{}
	patternIDs := map[string]string{}
	sequences := map[string]tripStopSequence{}
	nextPatternID := 0

	for _, t := range trips {
		rows := byTrip[t.ID]
		var stations []string
		var stopTimesArr []int

		for _, row := range rows {
			stationID, ok := stopToStation[row.StopID]
			if !ok {
				continue
			}
			arr, err := parseGTFSTime(row.ArrivalTime)
			if err != nil {
				continue
			}
			dep, err := parseGTFSTime(row.DepartureTime)
			if err != nil {
				continue
			}
			stations = append(stations, stationID)
			stopTimesArr = append(stopTimesArr, arr, dep)
		}

		sequences[t.ID] = tripStopSequence{stations: stations, stopTimes: stopTimesArr}

		key := strings.Join(stations, ",")
		patternID, seen := patternIDs[key]
		if !seen {
			patternID = fmt.Sprintf("p%d", nextPatternID)
			nextPatternID++
			patternIDs[key] = patternID
			patterns[patternID] = stations
		}
	}

	tripPatternIDs := map[string]string{}
	for _, t := range trips {
		seq := sequences[t.ID]
		key := strings.Join(seq.stations, ",")
		tripPatternIDs[t.ID] = patternIDs[key]
	}

	return patterns, tripPatternIDs, sequences
}

func buildTrips(tripRows []tripRow, sequences map[string]tripStopSequence, tripPatternIDs map[string]string, routeNames map[string]string) ([]Trip, error) {
	trips := make([]Trip, 0, len(tripRows))

	for _, t := range tripRows {
		id := t.ShortName
		if id == "" {
			id = t.ID
		}

		routeType := routeNames[t.RouteID]
		if routeType == "" {
			routeType = t.RouteID
		}

		trips = append(trips, Trip{
			ID:        id,
			ServiceID: t.ServiceID,
			PatternID: tripPatternIDs[t.ID],
			Direction: parseIntField(t.DirectionID),
			StopTimes: sequences[t.ID].stopTimes,
			RouteType: routeType,
		})
	}

	return trips, nil
}

func buildCalendarSection(calendars []calendarRow, exceptions []calendarDateRow) CalendarSection {
	section := CalendarSection{
		Calendars:  map[string]CalendarEntry{},
		Exceptions: map[string][]CalendarException{},
	}

	for _, c := range calendars {
		section.Calendars[c.ServiceID] = CalendarEntry{
			Days: [7]int{
				parseIntField(c.Monday),
				parseIntField(c.Tuesday),
				parseIntField(c.Wednesday),
				parseIntField(c.Thursday),
				parseIntField(c.Friday),
				parseIntField(c.Saturday),
				parseIntField(c.Sunday),
			},
			Start: parseIntField(c.StartDate),
			End:   parseIntField(c.EndDate),
		}
	}

	for _, e := range exceptions {
		section.Exceptions[e.ServiceID] = append(section.Exceptions[e.ServiceID], CalendarException{
			Date: parseIntField(e.Date),
			Type: parseIntField(e.ExceptionType),
		})
	}

	return section
}

func buildFares(attrs []fareAttributeRow, rules []fareRuleRow, zoneAttrs []farezoneAttributeRow) FareRules {
	priceByFareID := map[string]float64{}
	for _, a := range attrs {
		priceByFareID[a.FareID] = parseFloatField(a.Price)
	}

	fares := map[string]int{}
	for _, r := range rules {
		price, ok := priceByFareID[r.FareID]
		if !ok || r.OriginID == "" || r.DestinationID == "" {
			continue
		}
		key := pairKey(r.OriginID, r.DestinationID)
		fares[key] = int(math.Round(price * 100))
	}

	zones := map[string]ZoneInfo{}
	for _, z := range zoneAttrs {
		zones[z.ZoneID] = ZoneInfo{Name: z.ZoneName}
	}

	return FareRules{Zones: zones, Fares: fares}
}

func pairKey(origin, destination string) string {
	return origin + "→" + destination
}

// buildPairIndex records, for every ordered station pair a pattern visits,
// every trip that runs that pattern. Every trip with a >=2 stop pattern
// therefore appears under its own first->last pair.
func buildPairIndex(trips []Trip, patterns map[string][]string) map[string][]string {
	index := map[string][]string{}

	for _, trip := range trips {
		stations := patterns[trip.PatternID]
		for i := 0; i < len(stations); i++ {
			for j := i + 1; j < len(stations); j++ {
				key := pairKey(stations[i], stations[j])
				index[key] = append(index[key], trip.ID)
			}
		}
	}

	return index
}

// buildStationOrder derives the canonical north-to-south station ordering
// from descending latitude, which tracks the corridor's actual geography
// without needing to vote across competing patterns. Ties break on station
// id for determinism.
func buildStationOrder(stations map[string]Station) []string {
	ids := maps.Keys(stations)
	sort.Slice(ids, func(i, j int) bool {
		a, b := stations[ids[i]], stations[ids[j]]
		if a.Lat != b.Lat {
			return a.Lat > b.Lat
		}
		return ids[i] < ids[j]
	})
	return ids
}

func maxCalendarEndDate(calendars []calendarRow) int {
	max := 0
	for _, c := range calendars {
		if end := parseIntField(c.EndDate); end > max {
			max = end
		}
	}
	return max
}

func contentVersion(archiveBytes []byte) string {
	sum := sha256.Sum256(archiveBytes)
	return hex.EncodeToString(sum[:])
}
