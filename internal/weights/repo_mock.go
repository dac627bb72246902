package weights

import (
	"context"
	"sort"
	"time"
)

type repoMock struct {
	measurements map[int]*Measurement
	nextID       int
}

func NewMockWeightsRepo() *repoMock {
	return &repoMock{
		measurements: make(map[int]*Measurement),
		nextID:       1,
	}
}

func (r *repoMock) Add(_ context.Context, measurement Measurement) (*Measurement, error) {
	measurement.ID = r.nextID
	r.nextID++
	r.measurements[measurement.ID] = &measurement
	return &measurement, nil
}

func (r *repoMock) Get(_ context.Context, userID, id int) (*Measurement, error) {
	measurement, ok := r.measurements[id]
	if !ok || measurement.UserID != userID {
		return nil, ErrMeasurementNotFound
	}
	return measurement, nil
}

func (r *repoMock) List(_ context.Context, userID int) ([]Measurement, error) {
	measurements := make([]Measurement, 0)
	for _, m := range r.measurements {
		if m.UserID == userID {
			measurements = append(measurements, *m)
		}
	}
	sort.Slice(measurements, func(i, j int) bool {
		return measurements[i].MeasuredAt.After(measurements[j].MeasuredAt)
	})
	return measurements, nil
}

func (r *repoMock) LatestAtOrBefore(ctx context.Context, userID int, at time.Time) (*Measurement, error) {
	measurements, err := r.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, m := range measurements {
		if !m.MeasuredAt.After(at) {
			latest := m
			return &latest, nil
		}
	}
	return nil, ErrMeasurementNotFound
}

func (r *repoMock) Update(ctx context.Context, measurement Measurement) error {
	stored, err := r.Get(ctx, measurement.UserID, measurement.ID)
	if err != nil {
		return err
	}
	stored.WeightKg = measurement.WeightKg
	stored.MeasuredAt = measurement.MeasuredAt
	return nil
}

func (r *repoMock) Delete(_ context.Context, userID, id int) error {
	measurement, ok := r.measurements[id]
	if !ok || measurement.UserID != userID {
		return ErrMeasurementNotFound
	}
	delete(r.measurements, id)
	return nil
}
