package cv

import (
	"fmt"
	"net/mail"
	"net/url"
	"time"
)

// Errors 是按字段路径（如 user_data.experiences.0.to）组织的校验错误集合。
type Errors map[string]string

// Add 记录一条字段错误；同一字段只保留首条。
func (e Errors) Add(key, message string) {
	if _, exists := e[key]; !exists {
		e[key] = message
	}
}

const (
	msgRequired         = "This field is required."
	msgInvalidEmail     = "The email must be a valid email address."
	msgInvalidURL       = "The url format is invalid."
	msgInvalidMonth     = "The date does not match the format Y-m."
	msgDateRangeInvalid = "The end date must be equal to or after the start date."
	msgLevelOutOfRange  = "The proficiency level must be between 1 and 5."
)

const monthLayout = "2006-01"

// ValidateUserData 校验 API 侧 user_data，错误键以 prefix 开头。
// requireName 为 true 时 firstName/lastName 必填（打印临时档案的场景）。
// 跨字段规则：from 不得晚于 to；经历/项目标记 current 时跳过该检查。
func ValidateUserData(prefix string, userData *UserData, requireName bool) Errors {
	errs := Errors{}
	if userData == nil {
		return errs
	}

	if requireName {
		if isBlank(userData.FirstName) {
			errs.Add(prefix+".firstName", msgRequired)
		}
		if isBlank(userData.LastName) {
			errs.Add(prefix+".lastName", msgRequired)
		}
	}
	if !isBlank(userData.Email) {
		if _, err := mail.ParseAddress(*userData.Email); err != nil {
			errs.Add(prefix+".email", msgInvalidEmail)
		}
	}
	if !isBlank(userData.PortfolioURL) && !isValidURL(*userData.PortfolioURL) {
		errs.Add(prefix+".portfolioUrl", msgInvalidURL)
	}

	if userData.Skills != nil {
		for i, skill := range *userData.Skills {
			if isBlank(skill.Name) {
				errs.Add(fmt.Sprintf("%s.skills.%d.name", prefix, i), msgRequired)
			}
		}
	}

	if userData.Educations != nil {
		for i, edu := range *userData.Educations {
			key := func(field string) string { return fmt.Sprintf("%s.educations.%d.%s", prefix, i, field) }
			if isBlank(edu.Institution) {
				errs.Add(key("institution"), msgRequired)
			}
			if isBlank(edu.Degree) {
				errs.Add(key("degree"), msgRequired)
			}
			if isBlank(edu.FieldOfStudy) {
				errs.Add(key("fieldOfStudy"), msgRequired)
			}
			validateMonthRange(errs, key, edu.From, edu.To, false)
		}
	}

	if userData.Experiences != nil {
		for i, exp := range *userData.Experiences {
			key := func(field string) string { return fmt.Sprintf("%s.experiences.%d.%s", prefix, i, field) }
			if isBlank(exp.Position) {
				errs.Add(key("position"), msgRequired)
			}
			validateMonthRange(errs, key, exp.From, exp.To, exp.Current)
		}
	}

	if userData.Projects != nil {
		for i, proj := range *userData.Projects {
			key := func(field string) string { return fmt.Sprintf("%s.projects.%d.%s", prefix, i, field) }
			if isBlank(proj.Title) {
				errs.Add(key("title"), msgRequired)
			}
			if !isBlank(proj.URL) && !isValidURL(*proj.URL) {
				errs.Add(key("url"), msgInvalidURL)
			}
			validateMonthRange(errs, key, proj.From, proj.To, proj.Current)
		}
	}

	if userData.Languages != nil {
		for i, lang := range *userData.Languages {
			key := func(field string) string { return fmt.Sprintf("%s.languages.%d.%s", prefix, i, field) }
			if isBlank(lang.Name) {
				errs.Add(key("name"), msgRequired)
			}
			if lang.ProficiencyLevel < 1 || lang.ProficiencyLevel > 5 {
				errs.Add(key("proficiencyLevel"), msgLevelOutOfRange)
			}
		}
	}

	if userData.Interests != nil {
		for i, interest := range *userData.Interests {
			if isBlank(interest.Name) {
				errs.Add(fmt.Sprintf("%s.interests.%d.name", prefix, i), msgRequired)
			}
		}
	}

	return errs
}

// validateMonthRange 校验 from/to 的格式与先后关系。
// current 为 true 时仅校验格式：to 原样保留，但不参与区间比较。
func validateMonthRange(errs Errors, key func(string) string, from, to *string, current bool) {
	var fromTime, toTime time.Time
	fromOK, toOK := false, false

	if !isBlank(from) {
		t, err := time.Parse(monthLayout, *from)
		if err != nil {
			errs.Add(key("from"), msgInvalidMonth)
		} else {
			fromTime, fromOK = t, true
		}
	}
	if !isBlank(to) {
		t, err := time.Parse(monthLayout, *to)
		if err != nil {
			errs.Add(key("to"), msgInvalidMonth)
		} else {
			toTime, toOK = t, true
		}
	}

	if current {
		return
	}
	if fromOK && toOK && fromTime.After(toTime) {
		errs.Add(key("to"), msgDateRangeInvalid)
	}
}

func isBlank(s *string) bool {
	return s == nil || *s == ""
}

func isValidURL(raw string) bool {
	parsed, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return parsed.Scheme == "http" || parsed.Scheme == "https"
}
