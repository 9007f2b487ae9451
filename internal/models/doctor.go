package models

// Doctor is a directory record. Password is stored as issued by the
// configured password scheme, which is plain text unless bcrypt is enabled.
type Doctor struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	Name           string `gorm:"not null" json:"name"`
	MobileNumber   string `gorm:"not null;uniqueIndex" json:"mobile_number"`
	Password       string `gorm:"not null" json:"password"`
	Email          string `gorm:"not null" json:"email"`
	HospitalName   string `gorm:"not null" json:"hospital_name"`
	DoctorIDNumber string `gorm:"not null" json:"doctor_id_number"`
}

func (Doctor) TableName() string {
	return "doctors"
}
