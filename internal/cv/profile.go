package cv

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"cvstudio/internal/database"
)

// ApplyToProfile 将提供的分区编码进模型的 JSONB 列。
// nil 分区不触碰对应列，以支持“只更新提供的字段”的合并语义。
func ApplyToProfile(data ProfileData, model *database.Profile) {
	if data.Info != nil {
		model.Info = marshalSection(data.Info)
	}
	if data.Interests != nil {
		model.Interests = marshalSection(data.Interests)
	}
	if data.Languages != nil {
		model.Languages = marshalSection(data.Languages)
	}
	if data.Experiences != nil {
		model.Experiences = marshalSection(data.Experiences)
	}
	if data.Projects != nil {
		model.Projects = marshalSection(data.Projects)
	}
	if data.Educations != nil {
		model.Educations = marshalSection(data.Educations)
	}
}

// DecodeProfile 从模型的 JSONB 列还原存储形状。
// 解码失败或列为空时按“未提供”处理，转换永不报错。
func DecodeProfile(model database.Profile) ProfileData {
	var data ProfileData
	unmarshalSection(model.Info, &data.Info)
	unmarshalSection(model.Interests, &data.Interests)
	unmarshalSection(model.Languages, &data.Languages)
	unmarshalSection(model.Experiences, &data.Experiences)
	unmarshalSection(model.Projects, &data.Projects)
	unmarshalSection(model.Educations, &data.Educations)
	return data
}

// ProfileResponse 是 result 中的简历表示。
type ProfileResponse struct {
	ID            uint     `json:"id"`
	UserID        *uint    `json:"user_id"`
	Name          string   `json:"name"`
	Language      string   `json:"language"`
	SectionsOrder []string `json:"sections_order"`
	UserData      UserData `json:"user_data"`
	CreatedAt     string   `json:"created_at,omitempty"`
	UpdatedAt     string   `json:"updated_at,omitempty"`
}

// FormatProfileResponse 将存储模型格式化为 API 响应（含出站映射）。
func FormatProfileResponse(model database.Profile) ProfileResponse {
	return ProfileResponse{
		ID:            model.ID,
		UserID:        model.UserID,
		Name:          model.Name,
		Language:      model.Language,
		SectionsOrder: DecodeSectionsOrder(model.SectionsOrder),
		UserData:      MapProfileToUserData(DecodeProfile(model)),
		CreatedAt:     formatTimestamp(model.CreatedAt),
		UpdatedAt:     formatTimestamp(model.UpdatedAt),
	}
}

// DecodeSectionsOrder 读取分区排序列表，无法解析时返回 nil。
func DecodeSectionsOrder(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var order []string
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil
	}
	return order
}

// EncodeSectionsOrder 编码分区排序列表，nil 表示未提供。
func EncodeSectionsOrder(order []string) datatypes.JSON {
	if order == nil {
		return nil
	}
	return marshalSection(order)
}

func marshalSection(v any) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON([]byte("null"))
	}
	return datatypes.JSON(data)
}

func unmarshalSection[T any](raw datatypes.JSON, dst *T) {
	if len(raw) == 0 {
		return
	}
	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		return
	}
	*dst = value
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
