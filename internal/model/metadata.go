package model

import (
	"github.com/tidwall/gjson"
)

const (
	DefaultCategory  = "Event"
	PlaceholderImage = "/placeholder.svg"
)

// Metadata 活動 metadata JSON 中的選填欄位
type Metadata struct {
	Category string `json:"category"`
	Image    string `json:"image"`
	Date     string `json:"date,omitempty"`
	Time     string `json:"time,omitempty"`
}

// ParseMetadata 解析失敗時退回預設分類與圖片，不回傳錯誤
func ParseMetadata(raw string) Metadata {
	meta := Metadata{Category: DefaultCategory, Image: PlaceholderImage}
	if raw == "" || !gjson.Valid(raw) {
		return meta
	}
	result := gjson.Parse(raw)
	if !result.IsObject() {
		return meta
	}
	if v := result.Get("category").String(); v != "" {
		meta.Category = v
	}
	if v := result.Get("image").String(); v != "" {
		meta.Image = v
	}
	meta.Date = result.Get("date").String()
	meta.Time = result.Get("time").String()
	return meta
}
