package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "Browse the course catalogue",
}

var coursesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all published courses",
	RunE: func(cmd *cobra.Command, _ []string) error {
		courses, err := apiClient.Courses(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to fetch courses: %w", err)
		}

		if len(courses) == 0 {
			fmt.Println("No courses found.")
			return nil
		}

		for _, course := range courses {
			fmt.Printf("%-8d %-40s %-15s %s\n", course.ID, course.Title, course.Category, course.Duration)
		}
		return nil
	},
}

var coursesShowCmd = &cobra.Command{
	Use:   "show <document-id>",
	Short: "Show a course and its lessons",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		course, err := apiClient.CourseByDocumentID(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to fetch course: %w", err)
		}

		fmt.Printf("%s (%s)\n", course.Title, course.Category)
		if course.Instructor != "" {
			fmt.Printf("Instructor: %s\n", course.Instructor)
		}
		fmt.Printf("Duration: %s  Rating: %.1f\n", course.Duration, course.Rating)

		lessons, err := apiClient.Lessons(cmd.Context(), course.ID)
		if err != nil {
			return fmt.Errorf("failed to fetch lessons: %w", err)
		}

		fmt.Println("\nLessons:")
		for _, lesson := range lessons {
			locked := ""
			if lesson.IsLocked {
				locked = " [locked]"
			}
			fmt.Printf("  %2d. %s (%s)%s\n", lesson.Order, lesson.Title, lesson.Duration, locked)
		}
		return nil
	},
}

var lessonsCmd = &cobra.Command{
	Use:   "lessons <course-id>",
	Short: "List the lessons of a course",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		courseID, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid course id %q", args[0])
		}

		lessons, err := apiClient.Lessons(cmd.Context(), courseID)
		if err != nil {
			return fmt.Errorf("failed to fetch lessons: %w", err)
		}

		for _, lesson := range lessons {
			fmt.Printf("%2d. %-40s %s\n", lesson.Order, lesson.Title, lesson.Duration)
		}
		return nil
	},
}

func init() {
	coursesCmd.AddCommand(coursesListCmd)
	coursesCmd.AddCommand(coursesShowCmd)
}
