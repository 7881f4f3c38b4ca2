package handlers

import "github.com/ukydev/initinere/internal/models"

// PointRequest is a GPS fix sent by the client. The capture time is always
// assigned by the server.
type PointRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,latitude"`
	Longitude *float64 `json:"longitude" validate:"required,longitude"`
	Altitude  *float64 `json:"altitude,omitempty"`
	Accuracy  *float64 `json:"accuracy,omitempty" validate:"omitempty,gte=0"`
	Speed     *float64 `json:"speed,omitempty" validate:"omitempty,gte=0"`
}

func (p PointRequest) toModel() models.LocationPoint {
	return models.LocationPoint{
		Latitude:  *p.Latitude,
		Longitude: *p.Longitude,
		Altitude:  p.Altitude,
		Accuracy:  p.Accuracy,
		Speed:     p.Speed,
	}
}

type ChecklistRequest struct {
	Items []models.ChecklistItem `json:"items" validate:"omitempty,max=50,dive"`
}

type UpdateItemsRequest struct {
	Items []models.ChecklistItem `json:"items" validate:"required,min=1,max=50,dive"`
}

type StartTripRequest struct {
	VehicleType models.VehicleType `json:"vehicle_type" validate:"required,oneof=motorcycle car bus"`
	Origin      PointRequest       `json:"origin"`
}

type CompleteTripRequest struct {
	Destination PointRequest `json:"destination"`
}

type RaiseEmergencyRequest struct {
	Type        models.EmergencyType `json:"emergency_type" validate:"required,oneof=accident robbery medical other"`
	Description string               `json:"description" validate:"max=1000"`
	Location    PointRequest         `json:"location"`
}

type ResolveEmergencyRequest struct {
	Notes string `json:"resolution_notes" validate:"max=1000"`
}

type CreateVehicleRequest struct {
	VehicleType  models.VehicleType `json:"vehicle_type" validate:"required,oneof=motorcycle car bus"`
	LicensePlate string             `json:"license_plate" validate:"required,min=3,max=12"`
	Brand        string             `json:"brand" validate:"max=50"`
	Model        string             `json:"model" validate:"max=50"`
	Year         int                `json:"year" validate:"omitempty,gte=1950,lte=2100"`
	Color        string             `json:"color" validate:"max=30"`
}

// UpdateProfileRequest changes the fields that are present.
type UpdateProfileRequest struct {
	FullName *string `json:"full_name" validate:"omitempty,min=1,max=120"`
	Phone    *string `json:"phone" validate:"omitempty,max=30"`
}

type VehiclePreferenceRequest struct {
	VehicleType models.VehicleType `json:"vehicle_type" validate:"required,oneof=motorcycle car bus"`
}
