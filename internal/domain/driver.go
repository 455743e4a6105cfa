package domain

import "time"

// DriverStatus represents the current availability of a driver.
type DriverStatus string

const (
	DriverStatusAvailable DriverStatus = "available"
	DriverStatusBusy      DriverStatus = "busy"
	DriverStatusOffline   DriverStatus = "offline"
)

// Driver is a company employee who performs deliveries.
type Driver struct {
	ID        string
	CompanyID string
	Name      string
	Phone     string
	Status    DriverStatus
}

// VehicleStatus represents the current state of a vehicle.
type VehicleStatus string

const (
	VehicleStatusAvailable   VehicleStatus = "available"
	VehicleStatusInUse       VehicleStatus = "in_use"
	VehicleStatusMaintenance VehicleStatus = "maintenance"
)

// Vehicle is a company vehicle used for deliveries.
type Vehicle struct {
	ID          string
	CompanyID   string
	PlateNumber string
	Status      VehicleStatus
	UpdatedAt   time.Time
}
