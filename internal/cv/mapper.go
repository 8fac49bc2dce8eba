package cv

// 熟练度等级映射表。表外取值入站时回退为 beginner，出站时回退为 1，
// 因此只有表内取值满足往返不变性。
var levelNames = map[int]string{
	1: "beginner",
	2: "intermediate",
	3: "advanced",
	4: "fluent",
	5: "native",
}

var levelNumbers = map[string]int{
	"beginner":     1,
	"intermediate": 2,
	"advanced":     3,
	"fluent":       4,
	"native":       5,
}

// LevelName 把整数熟练度映射为存储侧字符串等级。
func LevelName(proficiency int) string {
	if name, ok := levelNames[proficiency]; ok {
		return name
	}
	return "beginner"
}

// LevelNumber 把字符串等级映射回整数熟练度。
func LevelNumber(level string) int {
	if n, ok := levelNumbers[level]; ok {
		return n
	}
	return 1
}

// MapUserDataToProfile 将 API 侧 user_data 转换为存储形状。
// 转换是纯函数且全定义：畸形输入不报错，缺失子字段保持为 nil/false。
func MapUserDataToProfile(userData *UserData) ProfileData {
	var mapped ProfileData
	if userData == nil {
		return mapped
	}

	mapped.Info = &Info{
		FirstName:    userData.FirstName,
		LastName:     userData.LastName,
		JobTitle:     userData.JobTitle,
		Email:        userData.Email,
		Address:      userData.Address,
		PortfolioURL: userData.PortfolioURL,
		Phone:        userData.Phone,
		Summary:      userData.Summary,
		Birthdate:    userData.Birthdate,
	}
	if userData.Skills != nil {
		skills := make([]Skill, len(*userData.Skills))
		copy(skills, *userData.Skills)
		mapped.Info.Skills = &skills
	}

	// 教育经历两侧形状一致
	if userData.Educations != nil {
		educations := make([]Education, len(*userData.Educations))
		copy(educations, *userData.Educations)
		mapped.Educations = &educations
	}

	// API: company -> 存储: name，current -> currentlyWorkingHere
	if userData.Experiences != nil {
		experiences := make([]StoredExperience, 0, len(*userData.Experiences))
		for _, exp := range *userData.Experiences {
			experiences = append(experiences, StoredExperience{
				Position:             exp.Position,
				Name:                 exp.Company,
				Location:             exp.Location,
				Description:          exp.Description,
				From:                 exp.From,
				To:                   exp.To,
				CurrentlyWorkingHere: exp.Current,
			})
		}
		mapped.Experiences = &experiences
	}

	// API: title -> 存储: name
	if userData.Projects != nil {
		projects := make([]StoredProject, 0, len(*userData.Projects))
		for _, proj := range *userData.Projects {
			projects = append(projects, StoredProject{
				Name:        proj.Title,
				Description: proj.Description,
				URL:         proj.URL,
				From:        proj.From,
				To:          proj.To,
			})
		}
		mapped.Projects = &projects
	}

	// API: name -> 存储: language，proficiencyLevel(1-5) -> level(字符串)
	if userData.Languages != nil {
		languages := make([]StoredLanguage, 0, len(*userData.Languages))
		for _, lang := range *userData.Languages {
			languages = append(languages, StoredLanguage{
				Language: lang.Name,
				Level:    LevelName(lang.ProficiencyLevel),
			})
		}
		mapped.Languages = &languages
	}

	// API: name -> 存储: interest
	if userData.Interests != nil {
		interests := make([]StoredInterest, 0, len(*userData.Interests))
		for _, interest := range *userData.Interests {
			interests = append(interests, StoredInterest{Interest: interest.Name})
		}
		mapped.Interests = &interests
	}

	return mapped
}

// MapProfileToUserData 将存储形状转换回 API 侧 user_data，重命名与等级映射取逆。
func MapProfileToUserData(data ProfileData) UserData {
	var userData UserData

	if data.Info != nil {
		userData.FirstName = data.Info.FirstName
		userData.LastName = data.Info.LastName
		userData.JobTitle = data.Info.JobTitle
		userData.Email = data.Info.Email
		userData.Address = data.Info.Address
		userData.PortfolioURL = data.Info.PortfolioURL
		userData.Phone = data.Info.Phone
		userData.Summary = data.Info.Summary
		userData.Birthdate = data.Info.Birthdate
		if data.Info.Skills != nil {
			skills := make([]Skill, len(*data.Info.Skills))
			copy(skills, *data.Info.Skills)
			userData.Skills = &skills
		}
	}

	if data.Educations != nil {
		educations := make([]Education, len(*data.Educations))
		copy(educations, *data.Educations)
		userData.Educations = &educations
	}

	if data.Experiences != nil {
		experiences := make([]Experience, 0, len(*data.Experiences))
		for _, exp := range *data.Experiences {
			experiences = append(experiences, Experience{
				Position:    exp.Position,
				Company:     exp.Name,
				Location:    exp.Location,
				Description: exp.Description,
				From:        exp.From,
				To:          exp.To,
				Current:     exp.CurrentlyWorkingHere,
			})
		}
		userData.Experiences = &experiences
	}

	if data.Projects != nil {
		projects := make([]Project, 0, len(*data.Projects))
		for _, proj := range *data.Projects {
			projects = append(projects, Project{
				Title:       proj.Name,
				Description: proj.Description,
				URL:         proj.URL,
				From:        proj.From,
				To:          proj.To,
			})
		}
		userData.Projects = &projects
	}

	if data.Languages != nil {
		languages := make([]Language, 0, len(*data.Languages))
		for _, lang := range *data.Languages {
			languages = append(languages, Language{
				Name:             lang.Language,
				ProficiencyLevel: LevelNumber(lang.Level),
			})
		}
		userData.Languages = &languages
	}

	if data.Interests != nil {
		interests := make([]Interest, 0, len(*data.Interests))
		for _, interest := range *data.Interests {
			interests = append(interests, Interest{Name: interest.Interest})
		}
		userData.Interests = &interests
	}

	return userData
}
