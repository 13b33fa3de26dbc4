package main

import (
	"strconv"
	"strings"

	"github.com/go-faster/errors"

	"gyscontrol/internal/pipeline"
)

// decisions are the per-row choices a user passes with --map, --replace and --opt-in.
type decisions struct {
	mappings map[int]string
	motives  map[int]string
	optIns   []int
}

func parseDecisions(mappings, replaces []string, optIns []int) (decisions, error) {
	d := decisions{mappings: map[int]string{}, motives: map[int]string{}, optIns: optIns}
	for _, raw := range mappings {
		line, value, err := parseLineValue(raw)
		if err != nil {
			return decisions{}, errors.Wrap(err, "--map")
		}
		d.mappings[line] = value
	}
	for _, raw := range replaces {
		line, value, err := parseLineValue(raw)
		if err != nil {
			return decisions{}, errors.Wrap(err, "--replace")
		}
		d.motives[line] = value
	}
	return d, nil
}

func parseLineValue(raw string) (int, string, error) {
	lineRaw, value, ok := strings.Cut(raw, "=")
	if !ok {
		return 0, "", errors.Errorf("expected LINE=VALUE, got %q", raw)
	}
	line, err := strconv.Atoi(strings.TrimSpace(lineRaw))
	if err != nil || line <= 0 {
		return 0, "", errors.Errorf("invalid line number %q", lineRaw)
	}
	return line, strings.TrimSpace(value), nil
}

// apply runs mappings before replacements, since a replacement needs a mapped row.
func (d decisions) apply(s *pipeline.Session) error {
	for line, id := range d.mappings {
		if err := s.SetMapping(line, id); err != nil {
			return err
		}
	}
	for line, motive := range d.motives {
		if err := s.FlagReplacement(line, motive); err != nil {
			return err
		}
	}
	for _, line := range d.optIns {
		if err := s.OptIntoCatalog(line); err != nil {
			return err
		}
	}
	return nil
}

func parseStages(values []string) ([]pipeline.Stage, error) {
	known := map[pipeline.Stage]bool{
		pipeline.StageLinked:   true,
		pipeline.StageReplaced: true,
		pipeline.StageCatalog:  true,
		pipeline.StageDirect:   true,
	}
	out := make([]pipeline.Stage, 0, len(values))
	for _, v := range values {
		stage := pipeline.Stage(strings.ToLower(strings.TrimSpace(v)))
		if stage == "" {
			continue
		}
		if !known[stage] {
			return nil, errors.Errorf("unknown stage %q", v)
		}
		out = append(out, stage)
	}
	return out, nil
}
