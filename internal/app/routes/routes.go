package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yigit/campuskizuna/internal/app/auth"
	"github.com/yigit/campuskizuna/internal/app/controllers"
	"github.com/yigit/campuskizuna/internal/middleware"
	"github.com/yigit/campuskizuna/internal/pkg/websocket"
)

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	sessionController *controllers.SessionController,
	userController *controllers.UserController,
	contentController *controllers.ContentController,
	academicController *controllers.AcademicController,
	exportController *controllers.ExportController,
	wsHandler *websocket.Handler,
	authMiddleware *middleware.AuthMiddleware,
	authRateLimit gin.HandlerFunc,
) {
	v1 := router.Group("/api/v1")

	// --- Public onboarding routes ---
	sessions := v1.Group("/sessions")
	{
		sessions.POST("", sessionController.StartSession)
		sessions.GET("/:id", sessionController.GetSession)
		sessions.POST("/:id/role", sessionController.SelectRole)
		sessions.POST("/:id/register", authRateLimit, sessionController.Register)
		sessions.POST("/:id/login", authRateLimit, sessionController.Login)
		sessions.POST("/:id/otp", authRateLimit, sessionController.VerifyOTP)
		sessions.POST("/:id/profile", sessionController.CompleteProfile)
		sessions.POST("/:id/back", sessionController.Back)
		sessions.POST("/:id/logout", sessionController.Logout)
	}

	// --- Authenticated routes: valid JWT and an Active session ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())

	users := authenticated.Group("/users")
	{
		users.GET("", userController.ListUsers)
		users.GET("/search", userController.SearchUsers)
		users.GET("/:id", userController.GetUser)
		users.PUT("/:id", userController.UpdateProfile)
		users.POST("/:id/follow", userController.ToggleFollow)
		users.GET("/:id/posts", userController.ListUserPosts)
		users.GET("/:id/stories", userController.ListUserStories)
		users.DELETE("/:id", authMiddleware.CapabilityRequired(auth.ManageUsers), userController.RemoveUser)
	}

	authenticated.GET("/feed", contentController.GetFeed)
	authenticated.GET("/notices", contentController.GetNotices)
	posts := authenticated.Group("/posts")
	{
		posts.POST("", contentController.CreatePost)
		posts.GET("/:id", contentController.GetPost)
		posts.POST("/:id/like", contentController.ToggleLike)
		posts.POST("/:id/comments", contentController.AddComment)
	}
	stories := authenticated.Group("/stories")
	{
		stories.GET("", contentController.GetActiveStories)
		stories.POST("", contentController.CreateStory)
	}

	authenticated.GET("/academics/me", academicController.GetMyOverview)

	subjects := authenticated.Group("/subjects")
	{
		subjects.GET("", academicController.ListSubjects)
		subjects.POST("", authMiddleware.CapabilityRequired(auth.ManageSubjects), academicController.CreateSubject)
	}

	manageClassrooms := authMiddleware.CapabilityRequired(auth.ManageClassrooms)
	classrooms := authenticated.Group("/classrooms")
	{
		classrooms.GET("", academicController.ListClassrooms)
		classrooms.POST("", manageClassrooms, academicController.CreateClassroom)
		classrooms.GET("/:id", academicController.GetClassroom)
		classrooms.GET("/:id/candidates", manageClassrooms, academicController.SearchCandidates)
		classrooms.POST("/:id/students", manageClassrooms, academicController.AddStudent)
		classrooms.POST("/:id/students/move", manageClassrooms, academicController.MoveStudent)
		classrooms.DELETE("/:id/students/:studentId", manageClassrooms, academicController.RemoveStudent)
		classrooms.PUT("/:id/timetable", manageClassrooms, academicController.SetTimetableSlot)
		classrooms.DELETE("/:id/timetable/:day/:startTime", manageClassrooms, academicController.RemoveTimetableSlot)
		classrooms.PUT("/:id/subjects", manageClassrooms, academicController.SetSubjects)
		classrooms.GET("/:id/faculty", academicController.GetFacultyAssignments)
		classrooms.PUT("/:id/subjects/:subjectId/faculty", manageClassrooms, academicController.AssignFaculty)
		classrooms.POST("/:id/attendance", authMiddleware.CapabilityRequired(auth.RecordAttendance), academicController.RecordAttendance)
		classrooms.GET("/:id/assignments", academicController.ListAssignments)
		classrooms.POST("/:id/assignments", authMiddleware.CapabilityRequired(auth.CreateAssignment), academicController.CreateAssignment)

		// Exports
		classrooms.GET("/:id/timetable.ics", exportController.ExportTimetable)
		classrooms.GET("/:id/attendance.xlsx", authMiddleware.CapabilityRequired(auth.ExportReports), exportController.ExportAttendance)
	}

	authenticated.GET("/ws", wsHandler.HandleConnection)
}
