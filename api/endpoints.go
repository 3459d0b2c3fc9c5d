package api

// CRM API paths, relative to the configured base URL.
const (
	// Auth
	EndpointLogin                    = "/user/login"
	EndpointLogout                   = "/user/logout"
	EndpointCurrentUser              = "/user/current-user"
	EndpointSendEmailToResetPassword = "/user/send-email-to-reset-password"

	// Curriculum
	EndpointPrograms = "/program-tag-club"

	// Study content
	EndpointStudyContent           = "/study-content/"
	EndpointStudyContentForContact = "/study-content/getStudyForContact"

	// Study categories and sub-categories
	EndpointStudyCategory           = "/study-category"
	EndpointSubCategoryByCategoryID = "/study-category/sub-category-by-category-id/"

	// Notice board
	EndpointNoticeBoardForContact = "/notice-board/getNoticeBoardForContact"
)
