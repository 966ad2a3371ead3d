package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/mind-engage/mindengage-grades/internal/grading"
)

// readDocument decodes a YAML or JSON file into v through its JSON form, so
// the JSON field names and custom decoders of the grading types apply.
func readDocument(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".json" {
		if raw, err = yaml.YAMLToJSON(raw); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// modelFile accepts either a bare graph or a stored model document with the
// graph under graphStructure.
type modelFile struct {
	grading.Graph
	GraphStructure *grading.Graph `json:"graphStructure"`
}

func readGraph(path string) (*grading.Graph, error) {
	var f modelFile
	if err := readDocument(path, &f); err != nil {
		return nil, err
	}
	if f.GraphStructure != nil {
		return f.GraphStructure, nil
	}
	return &f.Graph, nil
}

// recordsFile lists dated records per student and source node:
//
//	at: 2025-02-01T00:00:00Z
//	expiry:
//	  source-1: 2025-01-31T00:00:00Z
//	students:
//	  - id: 7
//	    records:
//	      source-1:
//	        - {value: 8, observedAt: 2025-01-10T00:00:00Z}
type recordsFile struct {
	At       *time.Time           `json:"at"`
	Expiry   map[string]time.Time `json:"expiry"`
	Students []struct {
		ID      int                              `json:"id"`
		Records map[string][]grading.DatedRecord `json:"records"`
	} `json:"students"`
}

func readRecords(path string) (*recordsFile, error) {
	var f recordsFile
	if err := readDocument(path, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// subjects selects one record per student and source node under policy.
// Source nodes left without a record are absent.
func (f *recordsFile) subjects(policy grading.SelectPolicy, now time.Time) ([]grading.Subject, error) {
	if f.At != nil {
		now = *f.At
	}
	out := make([]grading.Subject, 0, len(f.Students))
	for _, st := range f.Students {
		values := make(map[string]grading.SourceValue, len(st.Records))
		for node, recs := range st.Records {
			var override *time.Time
			if exp, ok := f.Expiry[node]; ok {
				override = &exp
			}
			rec, err := grading.Select(recs, policy, override, now)
			if err != nil {
				return nil, fmt.Errorf("student %d, %s: %w", st.ID, node, err)
			}
			if rec == nil {
				values[node] = grading.Absent()
				continue
			}
			values[node] = grading.Present(rec.Value)
		}
		out = append(out, grading.Subject{ID: grading.SubjectID(st.ID), SourceValues: values})
	}
	return out, nil
}

func sortedSubjectIDs(res map[grading.SubjectID]grading.Result) []grading.SubjectID {
	ids := make([]grading.SubjectID, 0, len(res))
	for id := range res {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
