// cmd/flyplan/main.go
// Copyright(c) 2025 flyplan contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// flyplan builds a flight plan from a route string, optionally runs the
// route calculator over the navigation database, and prints the leg
// table:
//
//	flyplan -config flyplan.toml -calc low -save plan.json EDDF T161 DEBHI EDDM
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/flyplan/flyplan/log"
	"github.com/flyplan/flyplan/nav"
	"github.com/flyplan/flyplan/route"
	"github.com/flyplan/flyplan/util"
)

func main() {
	configPath := flag.String("config", "", "path to TOML configuration file")
	calc := flag.String("calc", "", "route calculation: direct, radionav, low, high, or alt")
	loadPath := flag.String("load", "", "load a flight plan JSON file instead of a route string")
	savePath := flag.String("save", "", "save the resulting flight plan as JSON")
	logLevel := flag.String("loglevel", "", "log level: debug, info, warn, error")
	flag.Parse()

	config, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", *configPath, err)
		os.Exit(1)
	}
	if *logLevel != "" {
		config.Log.Level = *logLevel
	}
	lg := log.New(config.Log.Level, config.Log.Dir)

	if config.Nav.Database == "" {
		fmt.Fprintf(os.Stderr, "no navigation database configured\n")
		os.Exit(1)
	}
	db, err := openDatabase(config.Nav.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	lg.Infof("loaded %s: %s", config.Nav.Database, db)

	if config.Nav.Validate {
		var e util.ErrorLogger
		db.Check(&e)
		if e.HaveErrors() {
			e.PrintErrors(lg)
		}
	}

	events := route.NewEventStream(lg)
	sub := events.Subscribe()
	c := route.NewController(db, events, lg, route.Options{
		MaxDistanceDirectRatio: config.Route.MaxDistanceDirectRatio,
		PreferVORToAirway:      config.Route.PreferVORToAirway,
		PreferNDBToAirway:      config.Route.PreferNDBToAirway,
	})

	if *loadPath != "" {
		if err := c.LoadFlightplan(*loadPath); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
	} else if err := buildRoute(c, db, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	c.SetCruiseAltitude(config.Route.CruiseAltitude)
	if config.Route.VFR {
		c.Route().Plan.Type = route.PlanVFR
	}

	if *calc != "" {
		if err := runCalculation(c, *calc); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
	}

	printLegs(c)
	for _, ev := range sub.Get() {
		if ev.Type == route.StatusMessageEvent {
			fmt.Printf("# %s\n", ev.Message)
		}
	}

	if *savePath != "" {
		if err := c.SaveFlightplan(*savePath); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		fmt.Printf("saved %s\n", *savePath)
	}
}

func openDatabase(path string) (*nav.Database, error) {
	if strings.HasSuffix(path, ".json") || strings.HasSuffix(path, ".json.zst") {
		return nav.LoadJSON(path)
	}
	return nav.OpenSQLite(path)
}

// buildRoute turns a route string into plan entries, applied as one
// operation. Tokens are idents; a token naming an airway links the
// surrounding fixes along it, with the intermediate airway fixes filled
// in and the airway name kept on each leg it covers.
func buildRoute(c *route.Controller, db *nav.Database, tokens []string) error {
	var entries []route.FlightplanEntry
	var airway *nav.Airway
	for _, tok := range tokens {
		tok = strings.ToUpper(tok)

		// An airway name between two fixes; idents take priority for
		// tokens that are both.
		if aw, ok := db.Airways[tok]; ok && airway == nil && len(entries) > 0 {
			if _, _, isIdent := db.Locate(tok); !isIdent {
				airway = aw
				continue
			}
		}

		if airway != nil {
			prev := entries[len(entries)-1].Ident
			between, ok := airway.FixesBetween(prev, tok)
			if !ok {
				return fmt.Errorf("%s: %s and %s not connected", airway.Name, prev, tok)
			}
			for _, af := range between {
				entries = append(entries,
					route.FlightplanEntry{Ident: af.Fix, Airway: airway.Name})
			}
		}

		e := route.FlightplanEntry{Ident: tok}
		if airway != nil {
			e.Airway = airway.Name
			airway = nil
		}
		entries = append(entries, e)
	}
	if airway != nil {
		return fmt.Errorf("%s: airway at end of route string", airway.Name)
	}

	_, err := c.SetEntries(entries, "set route")
	return err
}

func runCalculation(c *route.Controller, mode string) error {
	var err error
	switch mode {
	case "direct":
		_, err = c.CalculateDirect(-1, -1)
	case "radionav":
		_, err = c.CalculateRadionav(-1, -1)
	case "low":
		_, err = c.CalculateLowAlt(-1, -1)
	case "high":
		_, err = c.CalculateHighAlt(-1, -1)
	case "alt":
		_, err = c.CalculateSetAlt(-1, -1)
	default:
		return fmt.Errorf("%s: unknown calculation mode", mode)
	}
	return err
}

func printLegs(c *route.Controller) {
	plan := c.Plan()
	fmt.Printf("%s -> %s", plan.DepartureIdent, plan.DestinationIdent)
	if plan.StartPosition != "" {
		fmt.Printf(" (from %s)", plan.StartPosition)
	}
	fmt.Printf("\n")

	w := tabwriter.NewWriter(os.Stdout, 2, 0, 2, ' ', 0)
	fmt.Fprintf(w, "#\tIDENT\tKIND\tAIRWAY\tPROC\tCRS\tDIST\tTOTAL\n")
	for i, leg := range c.Legs() {
		crs, dist := "", ""
		if i > 0 {
			crs = fmt.Sprintf("%03.0f", leg.CourseMag)
			dist = fmt.Sprintf("%.1f", leg.Distance)
		}
		proc := ""
		if leg.IsProcedure() {
			proc = leg.Entry.Procedure.String()
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%.1f\n",
			i, leg.Entry.Ident, leg.Entry.Kind, leg.Entry.Airway, proc,
			crs, dist, leg.CumDist)
	}
	w.Flush()
	fmt.Printf("total %.1f nm, cruise %d ft %s\n",
		c.Route().TotalDistance, plan.CruiseAltitude, plan.Type)
}
