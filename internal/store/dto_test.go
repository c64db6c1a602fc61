package store

import (
	"reflect"
	"testing"

	"github.com/olivere/elastic/v7"
)

func TestSourceAndInnerHitsViewsAgree(t *testing.T) {
	end := int64(2000)
	doc := runDoc{
		ExperimentID:   "E1",
		UserID:         "alice",
		Status:         "FINISHED",
		StartTime:      1000,
		EndTime:        &end,
		LifecycleStage: "active",
		ArtifactURI:    "/art/r1/artifacts",
		LatestMetrics:  []metricDoc{{Key: "acc", Value: 0.9, Timestamp: 5, Step: 1}},
		Params:         []paramDoc{{Key: "lr", Value: "0.1"}},
		Tags:           []tagDoc{{Key: "team", Value: "ml"}},
	}

	fromSource, err := sourceView{hit: &elastic.SearchHit{Id: "r1", Source: mustJSON(t, doc)}}.run()
	if err != nil {
		t.Fatalf("sourceView: %v", err)
	}

	stripped := doc
	stripped.LatestMetrics, stripped.Params, stripped.Tags = nil, nil, nil
	hit := &elastic.SearchHit{
		Id:     "r1",
		Source: mustJSON(t, stripped),
		InnerHits: map[string]*elastic.SearchHitInnerHits{
			pathLatestMetrics: {Hits: &elastic.SearchHits{Hits: []*elastic.SearchHit{
				{Source: mustJSON(t, doc.LatestMetrics[0])},
			}}},
			pathParams: {Hits: &elastic.SearchHits{Hits: []*elastic.SearchHit{
				{Source: mustJSON(t, doc.Params[0])},
			}}},
			pathTags: {Hits: &elastic.SearchHits{Hits: []*elastic.SearchHit{
				{Source: mustJSON(t, doc.Tags[0])},
			}}},
		},
	}
	fromInner, err := innerHitsView{hit: hit}.run()
	if err != nil {
		t.Fatalf("innerHitsView: %v", err)
	}

	if !reflect.DeepEqual(fromSource, fromInner) {
		t.Errorf("views disagree:\n source: %+v\n inner:  %+v", fromSource, fromInner)
	}
}

func TestInnerHitsViewMissingSections(t *testing.T) {
	doc := activeRunDoc("E1")
	doc.Metrics, doc.LatestMetrics, doc.Params, doc.Tags = nil, nil, nil, nil

	run, err := innerHitsView{hit: &elastic.SearchHit{Id: "r1", Source: mustJSON(t, doc)}}.run()
	if err != nil {
		t.Fatalf("innerHitsView: %v", err)
	}
	if len(run.Data.Metrics) != 0 || len(run.Data.Params) != 0 || len(run.Data.Tags) != 0 {
		t.Errorf("data = %+v, want empty sections", run.Data)
	}
	if run.Info.ExperimentID != "E1" {
		t.Errorf("info not decoded: %+v", run.Info)
	}
}

func TestRunDocToEntityUsesLatestMetrics(t *testing.T) {
	doc := runDoc{
		ExperimentID:   "E1",
		Status:         "RUNNING",
		LifecycleStage: "active",
		Metrics: []metricDoc{
			{Key: "loss", Value: 1.0, Timestamp: 1, Step: 0},
			{Key: "loss", Value: 0.5, Timestamp: 2, Step: 1},
		},
		LatestMetrics: []metricDoc{{Key: "loss", Value: 0.5, Timestamp: 2, Step: 1}},
	}
	run := doc.toEntity("r1")
	if len(run.Data.Metrics) != 1 || run.Data.Metrics[0].Value != 0.5 {
		t.Errorf("metrics = %+v, want latest only", run.Data.Metrics)
	}
	if run.Info.EndTime != nil {
		t.Errorf("end time = %v, want nil for running run", run.Info.EndTime)
	}
}

func TestMetricDocRoundTripsNaNFlag(t *testing.T) {
	md := metricDoc{Key: "loss", Value: 0, Timestamp: 1, Step: 0, IsNaN: true}
	m := md.toEntity()
	if !m.IsNaN || m.Value != 0 {
		t.Errorf("metric = %+v, want flagged NaN with zero value", m)
	}
}
