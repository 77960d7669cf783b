package types

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRequesterViewUsernameFallback(t *testing.T) {
	u := &User{
		ID:       primitive.NewObjectID(),
		Username: "olduser",
		Email:    "olduser@example.com",
	}
	view := NewRequesterView(u)
	if view.FirstName != "olduser" {
		t.Errorf("firstName is %q, want username fallback %q", view.FirstName, u.Username)
	}
	if view.LastName != "" {
		t.Errorf("lastName is %q, want empty", view.LastName)
	}
}

func TestUserViewKeepsProfileName(t *testing.T) {
	u := &User{
		ID:        primitive.NewObjectID(),
		Username:  "dana",
		FirstName: "Dana",
		LastName:  "Liu",
		Email:     "dana@example.com",
		Role:      RoleUser,
		Status:    UserActive,
	}
	view := NewUserView(u)
	if view.FirstName != "Dana" {
		t.Errorf("firstName is %q, want the stored first name", view.FirstName)
	}
	if view.Status != UserActive {
		t.Errorf("status is %q, want %q", view.Status, UserActive)
	}
}

func TestFileViewProjection(t *testing.T) {
	uploaded := time.Now()
	view := NewFileView(ExcelRecord{
		Filename:   "sales-q3.xlsx",
		Filesize:   20480,
		UploadedAt: uploaded,
		Rows:       120,
		Columns:    8,
	})
	if view.FileName != "sales-q3.xlsx" || view.FileSize != 20480 {
		t.Error("file projection does not carry name and size")
	}
	if !view.UploadedAt.Equal(uploaded) || view.Rows != 120 || view.Columns != 8 {
		t.Error("file projection does not carry upload metadata")
	}
}

func TestChartViewProjection(t *testing.T) {
	created := time.Now()
	view := NewChartView(ChartRecord{
		ChartType:     "bar",
		CreatedAt:     created,
		FromExcelFile: "sales-q3.xlsx",
		ChartConfig:   map[string]interface{}{"xAxis": "month"},
	})
	if view.ChartType != "bar" || view.FromFile != "sales-q3.xlsx" {
		t.Error("chart projection does not carry type and source file")
	}
	if view.ChartConfig["xAxis"] != "month" {
		t.Error("chart projection does not carry the chart configuration")
	}
}
