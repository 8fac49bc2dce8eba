package cv

// 两套字段命名并存：API 侧（对外）与存储侧（JSONB 列）。
// 指针切片承载三态语义：nil 表示“未提供”，非 nil 空切片表示“清空”。
// 文本子字段用 *string，缺失时序列化为 null，与对外契约保持一致。

// UserData 是 API 侧的简历数据形状。
type UserData struct {
	FirstName    *string       `json:"firstName"`
	LastName     *string       `json:"lastName"`
	JobTitle     *string       `json:"jobTitle"`
	Email        *string       `json:"email"`
	Address      *string       `json:"address"`
	PortfolioURL *string       `json:"portfolioUrl"`
	Phone        *string       `json:"phone"`
	Summary      *string       `json:"summary"`
	Birthdate    *string       `json:"birthdate"`
	Skills       *[]Skill      `json:"skills,omitempty"`
	Educations   *[]Education  `json:"educations,omitempty"`
	Experiences  *[]Experience `json:"experiences,omitempty"`
	Projects     *[]Project    `json:"projects,omitempty"`
	Languages    *[]Language   `json:"languages,omitempty"`
	Interests    *[]Interest   `json:"interests,omitempty"`
}

// Skill 两侧形状一致，原样透传。
type Skill struct {
	Name *string `json:"name"`
}

// Education 两侧形状一致，原样透传。
type Education struct {
	Institution  *string `json:"institution"`
	Degree       *string `json:"degree"`
	FieldOfStudy *string `json:"fieldOfStudy"`
	Description  *string `json:"description"`
	From         *string `json:"from"`
	To           *string `json:"to"`
}

// Experience 是 API 侧的工作经历条目（company/current）。
type Experience struct {
	Position    *string `json:"position"`
	Company     *string `json:"company"`
	Location    *string `json:"location"`
	Description *string `json:"description"`
	From        *string `json:"from"`
	To          *string `json:"to"`
	Current     bool    `json:"current"`
}

// Project 是 API 侧的项目条目（title）。
// Technologies 与 Current 仅参与校验，不进入存储形状。
type Project struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	Technologies *string `json:"technologies,omitempty"`
	URL          *string `json:"url"`
	From         *string `json:"from"`
	To           *string `json:"to"`
	Current      bool    `json:"current,omitempty"`
}

// Language 是 API 侧的语言条目（name + 整数等级）。
type Language struct {
	Name             *string `json:"name"`
	ProficiencyLevel int     `json:"proficiencyLevel"`
}

// Interest 是 API 侧的兴趣条目（name）。
type Interest struct {
	Name *string `json:"name"`
}

// Info 是存储侧的个人信息块。
type Info struct {
	FirstName    *string  `json:"firstName"`
	LastName     *string  `json:"lastName"`
	JobTitle     *string  `json:"jobTitle"`
	Email        *string  `json:"email"`
	Address      *string  `json:"address"`
	PortfolioURL *string  `json:"portfolioUrl"`
	Phone        *string  `json:"phone"`
	Summary      *string  `json:"summary"`
	Birthdate    *string  `json:"birthdate"`
	Skills       *[]Skill `json:"skills,omitempty"`
}

// StoredExperience 是存储侧的工作经历条目（name/currentlyWorkingHere）。
type StoredExperience struct {
	Position             *string `json:"position"`
	Name                 *string `json:"name"`
	Location             *string `json:"location"`
	Description          *string `json:"description"`
	From                 *string `json:"from"`
	To                   *string `json:"to"`
	CurrentlyWorkingHere bool    `json:"currentlyWorkingHere"`
}

// StoredProject 是存储侧的项目条目（name）。
type StoredProject struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	URL         *string `json:"url"`
	From        *string `json:"from"`
	To          *string `json:"to"`
}

// StoredLanguage 是存储侧的语言条目（language + 字符串等级）。
type StoredLanguage struct {
	Language *string `json:"language"`
	Level    string  `json:"level"`
}

// StoredInterest 是存储侧的兴趣条目（interest）。
type StoredInterest struct {
	Interest *string `json:"interest"`
}

// ProfileData 聚合存储侧的六个分区。nil 分区表示“未提供”。
type ProfileData struct {
	Info        *Info
	Interests   *[]StoredInterest
	Languages   *[]StoredLanguage
	Experiences *[]StoredExperience
	Projects    *[]StoredProject
	Educations  *[]Education
}
