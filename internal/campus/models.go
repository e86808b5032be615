package campus

import "gorm.io/gorm"

// Faculty 教职工
type Faculty struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	Name           string `gorm:"size:200;not null;index" json:"name"`
	Department     string `gorm:"size:200;index" json:"department"`
	Designation    string `gorm:"size:100" json:"designation"`
	OfficeLocation string `gorm:"column:office_location;size:200" json:"office_location"`
	Email          string `gorm:"size:200" json:"email"`
	Phone          string `gorm:"size:50" json:"phone"`
}

// Canteen 食堂及小卖部
type Canteen struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"size:200;not null;index" json:"name"`
	Location string `gorm:"size:200" json:"location"`
	Phone    string `gorm:"size:50" json:"phone"`
	Email    string `gorm:"size:200" json:"email"`
	Timings  string `gorm:"size:200" json:"timings"`
}

// Warden 宿舍管理员
type Warden struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Name   string `gorm:"size:200;not null" json:"name"`
	Hostel string `gorm:"size:200;not null;index" json:"hostel"`
	Phone  string `gorm:"size:50" json:"phone"`
	Email  string `gorm:"size:200" json:"email"`
}

// Building 楼宇
type Building struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:200;not null;index" json:"name"`
	Code        string `gorm:"size:20;index" json:"code"`
	Description string `gorm:"type:text" json:"description"`
	Floors      int    `json:"floors"`
}

// Room 房间，RoomNumber 形如 AB-101
type Room struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	RoomNumber string    `gorm:"column:room_number;size:50;not null;index" json:"room_number"`
	BuildingID uint      `gorm:"column:building_id;not null;index" json:"building_id"`
	Floor      int       `json:"floor"`
	Purpose    string    `gorm:"size:200" json:"purpose"`
	Building   *Building `gorm:"foreignKey:BuildingID" json:"building,omitempty"`
}

// Migrate 创建目录表，仅供本地开发和初始化脚本使用
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Building{}, &Room{}, &Faculty{}, &Canteen{}, &Warden{})
}
