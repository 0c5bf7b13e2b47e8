package domain

import (
	"testing"
	"time"
)

func validProperty() *Property {
	lat, lng := 33.5731, -7.5898
	return &Property{
		ID:           "p1",
		Title:        "Cozy Studio",
		Description:  "Bright studio near the sea",
		Price:        5000,
		Status:       StatusForRent,
		PropertyType: TypeStudio,
		SurfaceArea:  45,
		Rooms:        1,
		Bedrooms:     1,
		Bathrooms:    1,
		City:         "Casablanca",
		Address:      "12 Hassan II",
		Latitude:     &lat,
		Longitude:    &lng,
		PublishedAt:  time.Now(),
		UserID:       "u1",
	}
}

func TestValidateOK(t *testing.T) {
	if fe := validProperty().Validate(); fe != nil {
		t.Fatalf("expected no errors, got %v", fe)
	}
}

func TestValidateCollectsAllFields(t *testing.T) {
	p := &Property{
		Price:        -1,
		Status:       "swapped",
		PropertyType: "castle",
		SurfaceArea:  0,
		Rooms:        -1,
	}
	fe := p.Validate()
	if fe == nil {
		t.Fatal("expected errors")
	}
	for _, field := range []string{
		"title", "description", "price", "status", "propertyType",
		"surfaceArea", "rooms", "city", "address", "userId",
	} {
		if _, ok := fe[field]; !ok {
			t.Errorf("missing field error for %q in %v", field, fe)
		}
	}
}

func TestValidateCoordinatePairing(t *testing.T) {
	lat := 33.5
	p := validProperty()
	p.Latitude = &lat
	p.Longitude = nil
	fe := p.Validate()
	if fe == nil || fe["longitude"] == "" {
		t.Fatalf("expected longitude error, got %v", fe)
	}

	p = validProperty()
	p.Latitude = nil
	lng := -7.6
	p.Longitude = &lng
	fe = p.Validate()
	if fe == nil || fe["latitude"] == "" {
		t.Fatalf("expected latitude error, got %v", fe)
	}

	// 都不给是合法的
	p = validProperty()
	p.Latitude, p.Longitude = nil, nil
	if fe := p.Validate(); fe != nil {
		t.Fatalf("expected no errors, got %v", fe)
	}
}

func TestValidateCoordinateRange(t *testing.T) {
	p := validProperty()
	bad := 91.0
	p.Latitude = &bad
	if fe := p.Validate(); fe == nil || fe["latitude"] == "" {
		t.Fatalf("expected latitude range error, got %v", fe)
	}

	p = validProperty()
	badLng := 181.0
	p.Longitude = &badLng
	if fe := p.Validate(); fe == nil || fe["longitude"] == "" {
		t.Fatalf("expected longitude range error, got %v", fe)
	}
}

func TestPropertyTypeEnum(t *testing.T) {
	for _, ok := range []PropertyType{TypeApartment, TypeRiad, TypeParking, TypeFarmRanch} {
		if !ok.Valid() {
			t.Errorf("%q should be valid", ok)
		}
	}
	for _, bad := range []PropertyType{"", "castle", "APARTMENT"} {
		if bad.Valid() {
			t.Errorf("%q should be invalid", bad)
		}
	}
}

func TestListingStatusEnum(t *testing.T) {
	for _, ok := range []ListingStatus{StatusForSale, StatusForRent, StatusSold, StatusRented} {
		if !ok.Valid() {
			t.Errorf("%q should be valid", ok)
		}
	}
	if ListingStatus("available").Valid() {
		t.Error("unknown status accepted")
	}
}

func TestRoleEnum(t *testing.T) {
	if !RoleAdmin.Valid() || !RoleAgent.Valid() || !RoleIndividual.Valid() {
		t.Error("known roles rejected")
	}
	if Role("moderator").Valid() {
		t.Error("unknown role accepted")
	}
	if RoleAgent.CanManage() || RoleIndividual.CanManage() {
		t.Error("only admin can manage others' listings")
	}
	if !RoleAdmin.CanManage() {
		t.Error("admin must be able to manage")
	}
}

func TestFieldErrorsMessage(t *testing.T) {
	fe := FieldErrors{}
	fe.Add("title", "required")
	fe.Add("price", "must be >= 0")
	got := fe.Error()
	want := "price: must be >= 0; title: required"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
