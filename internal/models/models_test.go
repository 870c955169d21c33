package models

import (
	"testing"
)

func TestRun_TableName(t *testing.T) {
	run := Run{}
	expected := "runs"
	if run.TableName() != expected {
		t.Errorf("expected table name %s, got %s", expected, run.TableName())
	}
}

func TestAcquisition_TableName(t *testing.T) {
	acquisition := Acquisition{}
	expected := "acquisitions"
	if acquisition.TableName() != expected {
		t.Errorf("expected table name %s, got %s", expected, acquisition.TableName())
	}
}

func TestRunStatus_Constants(t *testing.T) {
	tests := []struct {
		status   RunStatus
		expected string
	}{
		{RunStatusRunning, "running"},
		{RunStatusSucceeded, "succeeded"},
		{RunStatusFailed, "failed"},
	}

	for _, tc := range tests {
		if string(tc.status) != tc.expected {
			t.Errorf("expected %s, got %s", tc.expected, tc.status)
		}
	}
}

func TestAcquisitionState_Constants(t *testing.T) {
	tests := []struct {
		state    AcquisitionState
		expected string
	}{
		{AcquisitionPersisted, "persisted"},
		{AcquisitionUnavailable, "unavailable"},
		{AcquisitionFailed, "failed"},
	}

	for _, tc := range tests {
		if string(tc.state) != tc.expected {
			t.Errorf("expected %s, got %s", tc.expected, tc.state)
		}
	}
}
